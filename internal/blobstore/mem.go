package blobstore

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/keithlinneman/sitebuilder/internal/cryptoutil"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

type memObject struct {
	body []byte
	meta Object
}

// MemStore is an in-process Store. Presigned URLs point at BaseURL and are
// not actually accepted by anything.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]memObject
	now     func() time.Time

	BaseURL string
}

func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]memObject),
		now:     func() time.Time { return time.Now().UTC() },
		BaseURL: "http://localhost/mem",
	}
}

func (m *MemStore) Get(ctx context.Context, key string) ([]byte, Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, Object{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, Object{}, xerrors.Wrapf(ErrNotFound, "get %s", key)
	}
	return append([]byte(nil), o.body...), o.meta, nil
}

func (m *MemStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := append([]byte(nil), body...)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{
		body: cp,
		meta: Object{
			Key:          key,
			Size:         int64(len(cp)),
			LastModified: m.now(),
			ETag:         cryptoutil.StrongETag(cp),
			ContentType:  contentType,
		},
	}
	return nil
}

func (m *MemStore) List(ctx context.Context, opts ListOptions) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		if !opts.Recursive && strings.Contains(k[len(opts.Prefix):], "/") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if opts.Limit > 0 && len(keys) > opts.Limit {
		keys = keys[:opts.Limit]
	}
	out := make([]Object, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.objects[k].meta)
	}
	m.mu.RUnlock()
	return out, nil
}

// Delete is idempotent, matching S3 DeleteObject.
func (m *MemStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.objects[srcKey]
	if !ok {
		return xerrors.Wrapf(ErrNotFound, "copy %s", srcKey)
	}
	meta := src.meta
	meta.Key = dstKey
	meta.LastModified = m.now()
	m.objects[dstKey] = memObject{body: append([]byte(nil), src.body...), meta: meta}
	return nil
}

func (m *MemStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (PresignedRequest, error) {
	if err := ctx.Err(); err != nil {
		return PresignedRequest{}, err
	}
	q := url.Values{}
	q.Set("X-Amz-Expires", strconv.Itoa(int(expiry/time.Second)))
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return PresignedRequest{
		URL:     strings.TrimRight(m.BaseURL, "/") + "/" + key + "?" + q.Encode(),
		Method:  http.MethodPut,
		Headers: h,
	}, nil
}

func (m *MemStore) Ping(ctx context.Context) error { return ctx.Err() }

// Len reports the number of stored objects.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
