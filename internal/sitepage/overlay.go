package sitepage

import (
	"bytes"
	"context"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/sections"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/theme"
)

type fieldView struct {
	Name  string
	Label string
	Kind  sections.FieldKind
	Value string
}

type sectionView struct {
	ID      string
	Label   string
	Visible bool
	// JSON selects the raw editor; Raw is its text.
	JSON   bool
	Raw    string
	Fields []fieldView
}

type overlayView struct {
	Variant    string
	Source     string
	Theme      siteconfig.Theme
	Presets    []string
	Radii      []string
	Duplicates []string
	Sections   []sectionView
	Kinds      []sections.Kind
}

// Routes registers the admin overlay fragment on r, mounted at /api.
func (h *Handler) Routes(r chi.Router) {
	r.With(h.guard.Require, httpmw.Scope("overlay")).Get("/admin/overlay", h.serveOverlay)
}

func (h *Handler) serveOverlay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	html, err := h.renderOverlay(ctx)
	if err != nil {
		h.logger.Error(ctx, err, "admin overlay render failed")
		http.Error(w, "overlay unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "private, no-store")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) renderOverlay(ctx context.Context) (template.HTML, error) {
	cfg, source, err := h.resolveDraft(ctx)
	if err != nil {
		return "", err
	}
	view := overlayView{
		Variant:    siteconfig.Draft.String(),
		Source:     source,
		Theme:      cfg.Theme,
		Presets:    theme.Presets,
		Radii:      theme.RadiusTokens,
		Duplicates: cfg.DuplicateIDs(),
		Kinds:      h.registry.Kinds(),
	}
	for _, s := range cfg.Sections {
		view.Sections = append(view.Sections, h.sectionView(s))
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "overlay", view); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// sectionView picks the editor: registered form kinds get their fields,
// everything else (including types with no display template) gets raw JSON.
func (h *Handler) sectionView(s siteconfig.Section) sectionView {
	kind, known := h.registry.Lookup(s.Type)
	v := sectionView{ID: s.ID, Label: kind.Label, Visible: s.IsVisible()}
	if !known || kind.Editor != sections.EditorForm || !h.renderer.Has(s.Type) {
		v.JSON = true
		v.Raw = sections.Pretty(s)
		return v
	}
	for _, f := range kind.Fields {
		v.Fields = append(v.Fields, fieldView{Name: f.Name, Label: f.Label, Kind: f.Kind, Value: s.String(f.Name)})
	}
	return v
}
