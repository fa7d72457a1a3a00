// Package configstore persists site configs per variant on top of a
// blobstore.Store and implements the draft to published workflow.
package configstore

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

const (
	contentTypeJSON = "application/json"

	// backupLayout is ISO-8601 UTC with millisecond precision.
	backupLayout = "2006-01-02T15:04:05.000Z"
)

type Options struct {
	Logger log.Logger
	Store  blobstore.Store
	SiteID string

	// Now is overridable in tests.
	Now func() time.Time
}

// Store has no locking: concurrent writers race at the storage layer and
// the last write wins.
type Store struct {
	store  blobstore.Store
	logger log.Logger
	prefix string
	now    func() time.Time

	mu         sync.Mutex
	lastBackup time.Time
}

func New(opts Options) (*Store, error) {
	if opts.SiteID == "" {
		return nil, xerrors.New("configstore: SiteID is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Store == nil {
		opts.Store = blobstore.Unconfigured{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{
		store:  opts.Store,
		logger: opts.Logger,
		prefix: path.Join("sites", opts.SiteID, "config"),
		now:    opts.Now,
	}, nil
}

// Key returns the storage key for a variant.
func (s *Store) Key(v siteconfig.Variant) string {
	return path.Join(s.prefix, string(v)+".json")
}

// BackupPrefix is the listing prefix for backups, with trailing slash.
func (s *Store) BackupPrefix() string { return path.Join(s.prefix, "backups") + "/" }

// Read returns the stored bytes for a variant. A miss is blobstore.ErrNotFound;
// bytes that are not JSON are reported with siteconfig.ErrMalformed.
func (s *Store) Read(ctx context.Context, v siteconfig.Variant) (json.RawMessage, error) {
	key := s.Key(v)
	body, _, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s config", v)
	}
	if !json.Valid(body) {
		return nil, xerrors.Wrapf(siteconfig.ErrMalformed, "read %s config %s", v, key)
	}
	return json.RawMessage(body), nil
}

// ReadOrNil is Read with every failure collapsed to nil. Failures other
// than a miss are logged.
func (s *Store) ReadOrNil(ctx context.Context, v siteconfig.Variant) json.RawMessage {
	raw, err := s.Read(ctx, v)
	if err != nil {
		if !errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn(ctx, "config read failed", "variant", v.String(), "err", err.Error())
		}
		return nil
	}
	return raw
}

// Write stores raw as-is under the variant key.
func (s *Store) Write(ctx context.Context, raw json.RawMessage, v siteconfig.Variant) error {
	if err := s.store.Put(ctx, s.Key(v), raw, contentTypeJSON); err != nil {
		return xerrors.Wrapf(err, "write %s config", v)
	}
	s.logger.Info(ctx, "config written", "variant", v.String(), "bytes", len(raw))
	return nil
}

// Publish server-side copies draft to published. Fails with
// blobstore.ErrNotFound when there is no draft.
func (s *Store) Publish(ctx context.Context) error {
	if err := s.store.Copy(ctx, s.Key(siteconfig.Draft), s.Key(siteconfig.Published)); err != nil {
		return xerrors.Wrap(err, "publish draft")
	}
	s.logger.Info(ctx, "config published")
	return nil
}

// Backup server-side copies draft to a new timestamped key and returns it.
func (s *Store) Backup(ctx context.Context) (string, error) {
	key := path.Join(s.prefix, "backups", s.nextBackupTime().Format(backupLayout)+".json")
	if err := s.store.Copy(ctx, s.Key(siteconfig.Draft), key); err != nil {
		return "", xerrors.Wrap(err, "backup draft")
	}
	s.logger.Info(ctx, "config backed up", "key", key)
	return key, nil
}

// nextBackupTime is strictly increasing at millisecond resolution within
// this process.
func (s *Store) nextBackupTime() time.Time {
	t := s.now().UTC().Truncate(time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !t.After(s.lastBackup) {
		t = s.lastBackup.Add(time.Millisecond)
	}
	s.lastBackup = t
	return t
}

// PublishWithBackup backs up the draft then publishes it. The two copies
// are independent: a failure after the backup leaves an unpublished backup.
func (s *Store) PublishWithBackup(ctx context.Context) (string, error) {
	key, err := s.Backup(ctx)
	if err != nil {
		return "", err
	}
	if err := s.Publish(ctx); err != nil {
		return key, err
	}
	return key, nil
}

// ErrNotBackup is returned by Restore for keys outside this site's backups.
var ErrNotBackup = errors.New("not a backup key for this site")

// Restore copies a backup over the draft. name may be a full key or the
// file name under BackupPrefix. Published is left alone.
func (s *Store) Restore(ctx context.Context, name string) (string, error) {
	key := name
	if !strings.Contains(name, "/") {
		key = s.BackupPrefix() + name
	}
	rest, ok := strings.CutPrefix(key, s.BackupPrefix())
	if !ok || rest == "" || strings.Contains(rest, "/") || !strings.HasSuffix(rest, ".json") {
		return "", xerrors.Wrapf(ErrNotBackup, "restore %s", name)
	}
	if err := s.store.Copy(ctx, key, s.Key(siteconfig.Draft)); err != nil {
		return "", xerrors.Wrapf(err, "restore %s", key)
	}
	s.logger.Info(ctx, "config restored to draft", "key", key)
	return key, nil
}

// ListBackups returns backup objects oldest first.
func (s *Store) ListBackups(ctx context.Context) ([]blobstore.Object, error) {
	objs, err := s.store.List(ctx, blobstore.ListOptions{Prefix: s.BackupPrefix()})
	if err != nil {
		return nil, xerrors.Wrap(err, "list backups")
	}
	return objs, nil
}
