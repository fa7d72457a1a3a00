package sitepage

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
	"sync/atomic"

	"github.com/keithlinneman/sitebuilder/internal/adminauth"
	"github.com/keithlinneman/sitebuilder/internal/configstore"
	"github.com/keithlinneman/sitebuilder/internal/fixtures"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/sections"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/theme"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

//go:embed templates/*.html
var templateFS embed.FS

// SourceHeader names the config source used for the response.
const SourceHeader = "X-Config-Source"

// Metrics is implemented by the metrics package.
type Metrics interface {
	IncPageConfigSource(source string)
}

// GalleryFunc lists images under a storage prefix.
type GalleryFunc func(ctx context.Context, prefix string) ([]siteconfig.GalleryItem, error)

type Options struct {
	Logger    log.Logger
	Store     *configstore.Store
	Fixtures  *fixtures.Source
	Renderer  *sections.Renderer
	Registry  *sections.Registry
	Guard     *adminauth.Guard
	Metrics   Metrics
	Gallery   GalleryFunc
	SiteID    string
	Preferred siteconfig.Variant
	// Maintenance is served when the page template fails.
	Maintenance http.HandlerFunc
}

type Handler struct {
	logger      log.Logger
	store       *configstore.Store
	fixtures    *fixtures.Source
	renderer    *sections.Renderer
	registry    *sections.Registry
	guard       *adminauth.Guard
	metrics     Metrics
	gallery     GalleryFunc
	siteID      string
	preferred   siteconfig.Variant
	maintenance http.HandlerFunc
	tmpl        *template.Template

	lastGood atomic.Pointer[siteconfig.SiteConfig]
}

func New(opts Options) (*Handler, error) {
	switch {
	case opts.Store == nil:
		return nil, xerrors.New("sitepage: Store is required")
	case opts.Fixtures == nil:
		return nil, xerrors.New("sitepage: Fixtures is required")
	case opts.Guard == nil:
		return nil, xerrors.New("sitepage: Guard is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Renderer == nil {
		r, err := sections.NewRenderer(opts.Logger)
		if err != nil {
			return nil, err
		}
		opts.Renderer = r
	}
	if opts.Registry == nil {
		opts.Registry = sections.DefaultRegistry()
	}
	if opts.Preferred == "" {
		opts.Preferred = siteconfig.Published
	}
	if opts.Maintenance == nil {
		opts.Maintenance = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "temporarily unavailable", http.StatusServiceUnavailable)
		}
	}
	tmpl, err := template.New("sitepage").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, xerrors.Wrap(err, "parse page templates")
	}
	return &Handler{
		logger:      opts.Logger,
		store:       opts.Store,
		fixtures:    opts.Fixtures,
		renderer:    opts.Renderer,
		registry:    opts.Registry,
		guard:       opts.Guard,
		metrics:     opts.Metrics,
		gallery:     opts.Gallery,
		siteID:      opts.SiteID,
		preferred:   opts.Preferred,
		maintenance: opts.Maintenance,
		tmpl:        tmpl,
	}, nil
}

type pageView struct {
	Root        theme.Attrs
	Title       string
	Description string
	Favicon     string
	Body        template.HTML
	Admin       bool
	Overlay     template.HTML
}

// ServeHTTP renders the page. ?admin=1 adds the overlay container; the
// editor itself is rendered inline only when the request is already
// authorized, otherwise admin.js fetches it with the token.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg, source, err := h.resolve(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		h.logger.Error(ctx, err, "no page config available")
		h.maintenance(w, r)
		return
	}
	if h.metrics != nil {
		h.metrics.IncPageConfigSource(source)
	}

	view := pageView{
		Root:  theme.RootAttrs(cfg.Theme),
		Title: h.siteID,
		Body:  h.renderer.RenderAll(ctx, h.fillGalleries(ctx, cfg.Sections)),
		Admin: r.URL.Query().Get(adminauth.QueryParam) == "1",
	}
	if m := cfg.Meta; m != nil {
		if m.Title != "" {
			view.Title = m.Title
		}
		view.Description = m.Description
		view.Favicon = m.Favicon
	}
	if view.Admin && h.guard.Allowed(r) {
		overlay, err := h.renderOverlay(ctx)
		if err != nil {
			h.logger.Warn(ctx, "admin overlay render failed", "err", err.Error())
		}
		view.Overlay = overlay
	}

	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "page", view); err != nil {
		h.logger.Error(ctx, err, "page render failed", "source", source)
		h.maintenance(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set(SourceHeader, source)
	if view.Admin {
		w.Header().Set("Cache-Control", "private, no-store")
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}
