package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/health"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	SiteID       string
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	CSP          httpmw.CSPOptions
	// MaxBody caps request bodies; 0 means httpmw.DefaultMaxBody.
	MaxBody int64

	Health    health.Probe
	Readiness []health.Check

	// APIRoutes registers /api routes on the router.
	APIRoutes func(chi.Router)
	// Page renders the site at "/".
	Page http.Handler
	// Static serves embedded assets; mounted at /static/ with the prefix stripped.
	Static http.Handler
	// NotFound handles unmatched routes, chi's default when nil.
	NotFound http.Handler
}
