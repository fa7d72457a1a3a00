package configapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

func TestSectionTypes(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(t, http.MethodGet, "/api/admin/sections/types", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	res := decode[typesResult](t, rec)
	if len(res.Types) == 0 {
		t.Fatal("no types")
	}
	seen := map[string]string{}
	for _, k := range res.Types {
		seen[k.Type] = string(k.Editor)
	}
	if seen["hero"] != "form" || seen["faq"] != "json" {
		t.Fatalf("editors = %v", seen)
	}
}

func TestSectionTypes_RequiresAdmin(t *testing.T) {
	h := newHarness(t, false)
	if rec := h.do(t, http.MethodGet, "/api/admin/sections/types", "", false); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateSection(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(t, http.MethodPost, "/api/admin/sections?type=hero", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	res := decode[sectionResult](t, rec)
	if res.Section.Type != "hero" || res.Section.ID == "" || res.Appended {
		t.Fatalf("result = %+v", res)
	}
	if h.mem.Len() != 0 {
		t.Fatal("non-append create wrote storage")
	}

	if rec := h.do(t, http.MethodPost, "/api/admin/sections?type=carousel", "", true); rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown type status = %d", rec.Code)
	}
}

func TestCreateSection_Append(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)

	rec := h.do(t, http.MethodPost, "/api/admin/sections?append=1", url.Values{"type": {"faq"}}.Encode(), true,
		"Content-Type", "application/x-www-form-urlencoded")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	cfg := loadDraft(t, h)
	if len(cfg.Sections) != 3 || cfg.Sections[2].Type != "faq" {
		t.Fatalf("sections = %+v", cfg.Sections)
	}
}

func TestUpdateSection_Form(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)

	form := url.Values{"title": {"  New headline "}, "visible": {"false"}}
	rec := h.do(t, http.MethodPut, "/api/admin/sections/h1", form.Encode(), true,
		"Content-Type", "application/x-www-form-urlencoded")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	cfg := loadDraft(t, h)
	s := cfg.Sections[0]
	if s.String("title") != "New headline" || s.IsVisible() {
		t.Fatalf("section = %+v", s)
	}
	if _, ok := s.Fields["extra"]; !ok {
		t.Fatal("form edit dropped unknown field")
	}
}

func TestUpdateSection_JSON(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)

	rec := h.do(t, http.MethodPut, "/api/admin/sections/t1", `{"body":"plain"}`, true, "Content-Type", "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	cfg := loadDraft(t, h)
	if cfg.Sections[1].ID != "t1" || cfg.Sections[1].Type != "text" || cfg.Sections[1].String("body") != "plain" {
		t.Fatalf("section = %+v", cfg.Sections[1])
	}
}

func TestUpdateSection_BadJSONKeepsOriginal(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)

	rec := h.do(t, http.MethodPut, "/api/admin/sections/t1", `{"body":`, true, "Content-Type", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	raw, _ := h.store.Read(context.Background(), siteconfig.Draft)
	if string(raw) != validJSON {
		t.Fatalf("draft changed: %s", raw)
	}
}

func TestUpdateSection_IDChangeRejected(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)
	rec := h.do(t, http.MethodPut, "/api/admin/sections/t1", `{"id":"other","type":"text"}`, true, "Content-Type", "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUpdateSection_Missing(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)
	rec := h.do(t, http.MethodPut, "/api/admin/sections/nope", `{}`, true, "Content-Type", "application/json")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDeleteSection(t *testing.T) {
	h := newHarness(t, false)
	h.seed(t, siteconfig.Draft, validJSON)

	rec := h.do(t, http.MethodDelete, "/api/admin/sections/h1", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cfg := loadDraft(t, h)
	if len(cfg.Sections) != 1 || cfg.Sections[0].ID != "t1" {
		t.Fatalf("sections = %+v", cfg.Sections)
	}
	if rec := h.do(t, http.MethodDelete, "/api/admin/sections/h1", "", true); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", rec.Code)
	}
}

func loadDraft(t *testing.T, h *harness) *siteconfig.SiteConfig {
	t.Helper()
	raw, err := h.store.Read(context.Background(), siteconfig.Draft)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := siteconfig.Decode(raw)
	if err != nil {
		t.Fatalf("decode %s: %v", strings.TrimSpace(string(raw)), err)
	}
	return cfg
}
