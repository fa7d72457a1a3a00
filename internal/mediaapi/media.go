package mediaapi

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/pathutil"
)

type item struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
}

type listResult struct {
	Items []item `json:"items"`
}

type deleteResult struct {
	OK  bool   `json:"ok"`
	Key string `json:"key"`
}

type presignRequest struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	// ExpiresIn is seconds.
	ExpiresIn int `json:"expiresIn"`
}

type presignResult struct {
	URL       string      `json:"url"`
	Method    string      `json:"method"`
	Headers   http.Header `json:"headers"`
	Key       string      `json:"key"`
	PublicURL string      `json:"publicUrl"`
	ExpiresIn int         `json:"expiresIn"`
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	if b := q.Get("bucket"); b != "" && b != a.bucket {
		httpjson.Error(ctx, w, http.StatusBadRequest, "unknown bucket")
		return
	}
	prefix, err := pathutil.CleanPrefix(q.Get("prefix"))
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, "invalid prefix")
		return
	}
	limit, err := parseLimit(q)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	objs, err := a.store.List(ctx, blobstore.ListOptions{Prefix: prefix, Limit: limit, Recursive: true})
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	res := listResult{Items: make([]item, 0, len(objs))}
	for _, o := range objs {
		res.Items = append(res.Items, item{
			Key:          o.Key,
			URL:          a.urls.PublicURL(o.Key),
			Size:         o.Size,
			LastModified: o.LastModified,
			ETag:         o.ETag,
		})
	}
	httpjson.Write(ctx, w, http.StatusOK, res)
}

func (a *API) delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := r.URL.Query().Get("key")
	if raw == "" {
		httpjson.Error(ctx, w, http.StatusBadRequest, "key is required")
		return
	}
	key, err := pathutil.CleanObjectKey(raw)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, "invalid key")
		return
	}
	if err := a.store.Delete(ctx, key); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	log.FromContext(ctx).Info(ctx, "media deleted", "key", key)
	httpjson.Write(ctx, w, http.StatusOK, deleteResult{OK: true, Key: key})
}

func (a *API) presign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req presignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if httpmw.IsBodyTooLarge(err) {
			httpjson.Error(ctx, w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		httpjson.ErrorDetails(ctx, w, http.StatusBadRequest, "invalid json", err.Error())
		return
	}

	key, err := uploadKey(req)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, "invalid key")
		return
	}
	ct := req.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	if _, _, err := mime.ParseMediaType(ct); err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, "invalid contentType")
		return
	}
	expiry, err := a.expiryFor(req.ExpiresIn)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	signed, err := a.store.PresignPut(ctx, key, ct, expiry)
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusOK, presignResult{
		URL:       signed.URL,
		Method:    http.MethodPut,
		Headers:   signed.Headers,
		Key:       key,
		PublicURL: a.urls.PublicURL(key),
		ExpiresIn: int(expiry / time.Second),
	})
}

// uploadKey uses the explicit key when given, else uploads/<uuid>-<name>.
func uploadKey(req presignRequest) (string, error) {
	if req.Key != "" {
		return pathutil.CleanObjectKey(req.Key)
	}
	return UploadPrefix + uuid.NewString() + "-" + pathutil.SanitizeFilename(req.Filename), nil
}

func (a *API) expiryFor(seconds int) (time.Duration, error) {
	switch {
	case seconds == 0:
		return a.expiry, nil
	case seconds < 0 || seconds > int(MaxExpiry/time.Second):
		return 0, errors.New("expiresIn must be between 1 and 3600")
	}
	return time.Duration(seconds) * time.Second, nil
}

// parseLimit reads ?limit=, defaulting to DefaultLimit and capping at MaxLimit.
func parseLimit(q url.Values) (int, error) {
	s := q.Get("limit")
	if s == "" {
		return DefaultLimit, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.New("invalid limit")
	}
	switch {
	case n <= 0:
		return DefaultLimit, nil
	case n > MaxLimit:
		return MaxLimit, nil
	}
	return n, nil
}

func writeStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, blobstore.ErrNotFound):
		httpjson.Error(ctx, w, http.StatusNotFound, "object not found")
		return
	}
	log.FromContext(ctx).Error(ctx, err, "media storage failure")
	if errors.Is(err, blobstore.ErrNoBucket) {
		httpjson.Error(ctx, w, http.StatusInternalServerError, "storage bucket not configured")
		return
	}
	httpjson.Error(ctx, w, http.StatusInternalServerError, "storage error")
}
