package configstore

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

const draftJSON = `{"theme":{"preset":"ocean"},"sections":[]}`

func newTestStore(t *testing.T, now func() time.Time) (*Store, *blobstore.MemStore) {
	t.Helper()
	mem := blobstore.NewMemStore()
	s, err := New(Options{Store: mem, SiteID: "acme", Now: now})
	if err != nil {
		t.Fatal(err)
	}
	return s, mem
}

func TestKeys(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if got := s.Key(siteconfig.Draft); got != "sites/acme/config/draft.json" {
		t.Errorf("draft key = %s", got)
	}
	if got := s.Key(siteconfig.Published); got != "sites/acme/config/published.json" {
		t.Errorf("published key = %s", got)
	}
	if got := s.BackupPrefix(); got != "sites/acme/config/backups/" {
		t.Errorf("backup prefix = %s", got)
	}
}

func TestNew_RequiresSiteID(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)

	if err := s.Write(ctx, []byte(draftJSON), siteconfig.Draft); err != nil {
		t.Fatal(err)
	}
	got, err := s.Read(ctx, siteconfig.Draft)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != draftJSON {
		t.Fatalf("read = %s", got)
	}
}

func TestRead_Missing(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)
	if _, err := s.Read(ctx, siteconfig.Published); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if s.ReadOrNil(ctx, siteconfig.Published) != nil {
		t.Fatal("ReadOrNil should be nil on miss")
	}
}

func TestRead_NotJSON(t *testing.T) {
	ctx := context.Background()
	s, mem := newTestStore(t, nil)
	_ = mem.Put(ctx, s.Key(siteconfig.Draft), []byte("<html>"), "text/html")

	if _, err := s.Read(ctx, siteconfig.Draft); !errors.Is(err, siteconfig.ErrMalformed) {
		t.Fatalf("err = %v", err)
	}
	if s.ReadOrNil(ctx, siteconfig.Draft) != nil {
		t.Fatal("ReadOrNil should be nil on parse failure")
	}
}

func TestWrite_NoBucket(t *testing.T) {
	s, err := New(Options{SiteID: "acme"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(context.Background(), []byte(draftJSON), siteconfig.Draft); !errors.Is(err, blobstore.ErrNoBucket) {
		t.Fatalf("err = %v", err)
	}
}

func TestPublish_CopiesExactBytes(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)
	raw := []byte("{\n  \"theme\": {\"preset\": \"ocean\"},\n  \"sections\": []\n}\n")
	_ = s.Write(ctx, raw, siteconfig.Draft)

	if err := s.Publish(ctx); err != nil {
		t.Fatal(err)
	}
	pub, err := s.Read(ctx, siteconfig.Published)
	if err != nil {
		t.Fatal(err)
	}
	draft, _ := s.Read(ctx, siteconfig.Draft)
	if string(pub) != string(raw) || string(draft) != string(raw) {
		t.Fatalf("published = %q", pub)
	}
}

func TestPublish_NoDraft(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if err := s.Publish(context.Background()); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestBackup_DistinctKeysSameInstant(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	s, mem := newTestStore(t, func() time.Time { return fixed })
	_ = s.Write(ctx, []byte(draftJSON), siteconfig.Draft)

	k1, err := s.Backup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	k2, err := s.Backup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if k1 != "sites/acme/config/backups/2026-03-14T09:26:53.589Z.json" {
		t.Errorf("k1 = %s", k1)
	}
	if k2 != "sites/acme/config/backups/2026-03-14T09:26:53.590Z.json" {
		t.Errorf("k2 = %s", k2)
	}

	body, _, _ := mem.Get(ctx, k2)
	draft, _ := s.Read(ctx, siteconfig.Draft)
	if string(body) != draftJSON || string(draft) != draftJSON {
		t.Fatal("backup must copy the draft and leave it unchanged")
	}
}

func TestPublishWithBackup(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)
	_ = s.Write(ctx, []byte(draftJSON), siteconfig.Draft)

	key, err := s.PublishWithBackup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, s.BackupPrefix()) {
		t.Errorf("backup key = %s", key)
	}
	backups, err := s.ListBackups(ctx)
	if err != nil || len(backups) != 1 || backups[0].Key != key {
		t.Fatalf("backups = %+v, %v", backups, err)
	}
	pub, _ := s.Read(ctx, siteconfig.Published)
	if string(pub) != draftJSON {
		t.Fatalf("published = %s", pub)
	}
}

func TestPublishWithBackup_NoDraft(t *testing.T) {
	s, mem := newTestStore(t, nil)
	if _, err := s.PublishWithBackup(context.Background()); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if mem.Len() != 0 {
		t.Fatal("nothing should be written without a draft")
	}
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, nil)
	_ = s.Write(ctx, []byte(draftJSON), siteconfig.Draft)
	key, err := s.Backup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Write(ctx, []byte(`{"theme":{"preset":"night"},"sections":[]}`), siteconfig.Draft)

	// by file name
	name := strings.TrimPrefix(key, s.BackupPrefix())
	got, err := s.Restore(ctx, name)
	if err != nil || got != key {
		t.Fatalf("Restore = %q, %v", got, err)
	}
	draft, _ := s.Read(ctx, siteconfig.Draft)
	if string(draft) != draftJSON {
		t.Fatalf("draft = %s", draft)
	}
	if _, err := s.Read(ctx, siteconfig.Published); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatal("restore must not publish")
	}
}

func TestRestore_RejectsOtherKeys(t *testing.T) {
	s, _ := newTestStore(t, nil)
	for _, name := range []string{
		"sites/acme/config/published.json",
		"sites/other/config/backups/2026-01-01T00:00:00.000Z.json",
		"sites/acme/config/backups/",
		"sites/acme/config/backups/nested/x.json",
		"notes.txt",
	} {
		if _, err := s.Restore(context.Background(), name); !errors.Is(err, ErrNotBackup) {
			t.Errorf("Restore(%q) err = %v", name, err)
		}
	}
}

func TestRestore_MissingBackup(t *testing.T) {
	s, _ := newTestStore(t, nil)
	if _, err := s.Restore(context.Background(), "2026-01-01T00:00:00.000Z.json"); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}
