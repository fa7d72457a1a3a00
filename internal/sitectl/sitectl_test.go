package sitectl

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

const validConfig = `{"theme":{"preset":"forest"},"sections":[{"id":"hero","type":"hero","title":"Hi"}]}`

type harness struct {
	mem    *blobstore.MemStore
	opened []Settings
}

func newHarness() *harness {
	return &harness{mem: blobstore.NewMemStore()}
}

func (h *harness) open(_ context.Context, s Settings) (blobstore.Store, error) {
	h.opened = append(h.opened, s)
	return h.mem, nil
}

// run executes one command line and returns stdout and stderr.
func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd(&out, &errOut, h.open)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestValidate(t *testing.T) {
	h := newHarness()
	out, _, err := h.run(t, validConfig, "validate", "-")
	if err != nil || !strings.Contains(out, "ok: 1 sections") {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if len(h.opened) != 0 {
		t.Fatal("validate must not open storage")
	}

	_, errOut, err := h.run(t, `{"theme":{},"sections":[{"type":"hero"}]}`, "validate", "-")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(errOut, "sections[0]") {
		t.Fatalf("issues not printed: %q", errOut)
	}
}

func TestPutGetPublishRestore(t *testing.T) {
	h := newHarness()
	file := writeFile(t, "site.json", validConfig)
	base := []string{"--bucket", "sites", "--site-id", "acme"}

	if _, _, err := h.run(t, "", append(base, "put", file)...); err != nil {
		t.Fatal(err)
	}
	out, _, err := h.run(t, "", append(base, "get")...)
	if err != nil || strings.TrimSpace(out) != validConfig {
		t.Fatalf("get draft = %q, %v", out, err)
	}
	if _, _, err := h.run(t, "", append(base, "get", "--variant", "published")...); err == nil {
		t.Fatal("published should not exist yet")
	}

	out, _, err = h.run(t, "", append(base, "publish")...)
	if err != nil || !strings.Contains(out, "sites/acme/config/backups/") {
		t.Fatalf("publish = %q, %v", out, err)
	}
	out, _, _ = h.run(t, "", append(base, "get", "--variant", "published")...)
	if strings.TrimSpace(out) != validConfig {
		t.Fatalf("published = %q", out)
	}

	out, _, err = h.run(t, "", append(base, "backups", "-o", "json")...)
	if err != nil {
		t.Fatal(err)
	}
	var backups []blobstore.Object
	if err := json.Unmarshal([]byte(out), &backups); err != nil || len(backups) != 1 {
		t.Fatalf("backups = %q, %v", out, err)
	}

	// overwrite the draft then bring the backup back
	if _, _, err := h.run(t, `{"theme":{"preset":"night"},"sections":[]}`, append(base, "put", "-")...); err != nil {
		t.Fatal(err)
	}
	name := filepath.Base(backups[0].Key)
	if _, _, err := h.run(t, "", append(base, "restore", name)...); err != nil {
		t.Fatal(err)
	}
	out, _, _ = h.run(t, "", append(base, "get")...)
	if strings.TrimSpace(out) != validConfig {
		t.Fatalf("restored draft = %q", out)
	}

	if h.opened[0].SiteID != "acme" || h.opened[0].Bucket != "sites" {
		t.Fatalf("settings = %+v", h.opened[0])
	}
}

func TestPut_RejectsInvalid(t *testing.T) {
	h := newHarness()
	_, _, err := h.run(t, `{"sections":"nope"}`, "--bucket", "sites", "put", "-")
	if err == nil {
		t.Fatal("expected error")
	}
	if h.mem.Len() != 0 {
		t.Fatal("invalid config must not be stored")
	}
}

func TestBucketRequired(t *testing.T) {
	h := newHarness()
	_, _, err := h.run(t, "", "get")
	if err == nil || !strings.Contains(err.Error(), "bucket is required") {
		t.Fatalf("err = %v", err)
	}
}

func TestSettingsFromEnvAndFile(t *testing.T) {
	t.Setenv("SITECTL_BUCKET", "env-bucket")
	cfgFile := writeFile(t, "sitectl.yaml", "site-id: harbor-yoga\nbucket: file-bucket\ncdn-base: https://cdn.example.com\n")

	h := newHarness()
	h.mem.Put(context.Background(), "sites/harbor-yoga/config/draft.json", []byte(validConfig), "application/json")
	if _, _, err := h.run(t, "", "--config", cfgFile, "get"); err != nil {
		t.Fatal(err)
	}
	s := h.opened[0]
	if s.Bucket != "env-bucket" || s.SiteID != "harbor-yoga" || s.CDNBase != "https://cdn.example.com" {
		t.Fatalf("settings = %+v", s)
	}

	// an explicit flag beats env
	if _, _, err := h.run(t, "", "--config", cfgFile, "--bucket", "flag-bucket", "get"); err != nil {
		t.Fatal(err)
	}
	if h.opened[1].Bucket != "flag-bucket" {
		t.Fatalf("bucket = %s", h.opened[1].Bucket)
	}
}

func TestMissingExplicitConfigFile(t *testing.T) {
	h := newHarness()
	if _, _, err := h.run(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version"); err == nil {
		t.Fatal("expected error for missing --config file")
	}
}

func TestMediaUploadListRm(t *testing.T) {
	h := newHarness()
	img := writeFile(t, "Rye Loaf.jpg", "jpeg bytes")
	base := []string{"--bucket", "sites", "--cdn-base", "https://cdn.example.com"}

	out, _, err := h.run(t, "", append(base, "media", "upload", img)...)
	if err != nil {
		t.Fatal(err)
	}
	url := strings.TrimSpace(out)
	if !strings.HasPrefix(url, "https://cdn.example.com/uploads/") || !strings.HasSuffix(url, "-Rye-Loaf.jpg") {
		t.Fatalf("url = %q", url)
	}
	key := strings.TrimPrefix(url, "https://cdn.example.com/")
	_, obj, err := h.mem.Get(context.Background(), key)
	if err != nil || obj.ContentType != "image/jpeg" {
		t.Fatalf("stored %+v, %v", obj, err)
	}

	out, _, err = h.run(t, "", append(base, "media", "list", "--prefix", "uploads/")...)
	if err != nil || !strings.Contains(out, key) || !strings.Contains(out, url) {
		t.Fatalf("list = %q, %v", out, err)
	}

	if _, _, err := h.run(t, "", append(base, "media", "rm", "../etc/passwd")...); err == nil {
		t.Fatal("unsafe key accepted")
	}
	if _, _, err := h.run(t, "", append(base, "media", "rm", key)...); err != nil {
		t.Fatal(err)
	}
	if h.mem.Len() != 0 {
		t.Fatal("object not deleted")
	}
}

func TestMediaPresign(t *testing.T) {
	h := newHarness()
	out, _, err := h.run(t, "", "--bucket", "sites", "media", "presign", "--filename", "menu.pdf", "--expires", "10m")
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		URL       string              `json:"url"`
		Method    string              `json:"method"`
		Headers   map[string][]string `json:"headers"`
		Key       string              `json:"key"`
		ExpiresIn int                 `json:"expiresIn"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("%v: %s", err, out)
	}
	if got.Method != "PUT" || got.ExpiresIn != 600 || !strings.HasPrefix(got.Key, "uploads/") {
		t.Fatalf("presign = %+v", got)
	}
	if ct := got.Headers["Content-Type"]; len(ct) != 1 || ct[0] != "application/pdf" {
		t.Fatalf("headers = %v", got.Headers)
	}

	if _, _, err := h.run(t, "", "--bucket", "sites", "media", "presign", "--key", "a.png", "--expires", "2h"); err == nil {
		t.Fatal("expiry above the max accepted")
	}
}

func TestVariantFlagRejectsUnknown(t *testing.T) {
	h := newHarness()
	_, _, err := h.run(t, "", "--bucket", "sites", "get", "--variant", "staging")
	if err == nil || !strings.Contains(err.Error(), siteconfig.ErrInvalidVariant.Error()) {
		t.Fatalf("err = %v", err)
	}
}

func TestSectionImport_AddsThenUpdates(t *testing.T) {
	h := newHarness()
	if _, _, err := h.run(t, validConfig, "put", "-"); err != nil {
		t.Fatal(err)
	}

	md := writeFile(t, "story.md", "---\nid: story\ntype: text\ntitle: Our story\n---\nWe bake **every** morning.\n")
	out, _, err := h.run(t, "", "section", "import", md)
	if err != nil || !strings.Contains(out, "added section story (text) in draft") {
		t.Fatalf("out=%q err=%v", out, err)
	}

	md = writeFile(t, "story.md", "---\nid: story\ntitle: Since 1987\nvisible: false\n---\n")
	out, _, err = h.run(t, "", "section", "import", md)
	if err != nil || !strings.Contains(out, "updated section story") {
		t.Fatalf("out=%q err=%v", out, err)
	}

	raw, _, err := h.mem.Get(context.Background(), "sites/default/config/draft.json")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := siteconfig.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(cfg.Sections))
	}
	story := cfg.Sections[1]
	if story.String("title") != "Since 1987" || !strings.Contains(story.String("body"), "We bake") || story.IsVisible() {
		t.Fatalf("story = %+v", story)
	}
}

func TestSectionImport_TypeMismatch(t *testing.T) {
	h := newHarness()
	if _, _, err := h.run(t, validConfig, "put", "-"); err != nil {
		t.Fatal(err)
	}
	md := writeFile(t, "hero.md", "---\nid: hero\ntype: footer\n---\n")
	if _, _, err := h.run(t, "", "section", "import", md); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestSectionLs(t *testing.T) {
	h := newHarness()
	if _, _, err := h.run(t, validConfig, "put", "-"); err != nil {
		t.Fatal(err)
	}
	out, _, err := h.run(t, "", "section", "ls")
	if err != nil || !strings.Contains(out, "hero") || !strings.Contains(out, "true") {
		t.Fatalf("out=%q err=%v", out, err)
	}
	if _, _, err := h.run(t, "", "section", "ls", "--variant", "published"); err == nil {
		t.Fatal("expected error for missing published config")
	}
}

func TestGet_YAML(t *testing.T) {
	h := newHarness()
	if _, _, err := h.run(t, validConfig, "put", "-"); err != nil {
		t.Fatal(err)
	}
	out, _, err := h.run(t, "", "get", "-o", "yaml")
	if err != nil || !strings.Contains(out, "preset: forest") || !strings.Contains(out, "type: hero") {
		t.Fatalf("out=%q err=%v", out, err)
	}
}
