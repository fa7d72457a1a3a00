// Package configapi serves the site config JSON API: variant-aware reads,
// admin writes, publish with backup, theme patches and section editing.
package configapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/adminauth"
	"github.com/keithlinneman/sitebuilder/internal/configstore"
	"github.com/keithlinneman/sitebuilder/internal/fixtures"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/sections"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// Metrics is implemented by the metrics package.
type Metrics interface {
	IncConfigPublish(result string)
}

type Options struct {
	Logger   log.Logger
	Store    *configstore.Store
	Guard    *adminauth.Guard
	Fixtures *fixtures.Source
	Registry *sections.Registry
	Metrics  Metrics
	SiteID   string
	// MockMode answers GET /config from the bundled fixture for SiteID.
	MockMode bool
	// AdminLimiter, when set, wraps every admin route (after the guard).
	AdminLimiter func(http.Handler) http.Handler
}

type API struct {
	logger   log.Logger
	store    *configstore.Store
	guard    *adminauth.Guard
	fixtures *fixtures.Source
	registry *sections.Registry
	metrics  Metrics
	siteID   string
	mock     bool
	limiter  func(http.Handler) http.Handler
}

func New(opts Options) (*API, error) {
	if opts.Store == nil {
		return nil, xerrors.New("configapi: Store is required")
	}
	if opts.Guard == nil {
		return nil, xerrors.New("configapi: Guard is required")
	}
	if opts.MockMode && opts.Fixtures == nil {
		return nil, xerrors.New("configapi: Fixtures required in mock mode")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Registry == nil {
		opts.Registry = sections.DefaultRegistry()
	}
	return &API{
		logger:   opts.Logger,
		store:    opts.Store,
		guard:    opts.Guard,
		fixtures: opts.Fixtures,
		registry: opts.Registry,
		metrics:  opts.Metrics,
		siteID:   opts.SiteID,
		mock:     opts.MockMode,
		limiter:  opts.AdminLimiter,
	}, nil
}

// Routes registers the API on r, which is expected to be mounted at /api.
func (a *API) Routes(r chi.Router) {
	r.With(httpmw.Scope("config")).Get("/config", a.getConfig)

	r.Group(func(r chi.Router) {
		r.Use(a.guard.Require)
		if a.limiter != nil {
			r.Use(a.limiter)
		}
		r.Use(httpmw.Scope("config-admin"))

		r.Put("/config", a.putConfig)
		r.Post("/config/publish", a.publish)
		r.Patch("/config/theme", a.patchTheme)

		r.Get("/admin/sections/types", a.sectionTypes)
		r.Post("/admin/sections", a.createSection)
		r.Put("/admin/sections/{id}", a.updateSection)
		r.Delete("/admin/sections/{id}", a.deleteSection)
	})
}
