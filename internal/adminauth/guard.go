// Package adminauth gates admin routes on a shared sentinel token sent in
// a request header. It is stateless: there are no sessions, expiry or
// signatures.
package adminauth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/cryptoutil"
	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/log"
)

const (
	HeaderName = "X-Admin-Token"
	QueryParam = "admin"
)

// DenyMetrics is implemented by the metrics package.
type DenyMetrics interface {
	IncAdminDenied(route string)
}

type Options struct {
	Token string
	// AllowQueryParam accepts ?admin=1 without a token. Development only.
	AllowQueryParam bool
	Logger          log.Logger
	Metrics         DenyMetrics
}

type Guard struct {
	token      string
	allowQuery bool
	logger     log.Logger
	metrics    DenyMetrics
}

func New(opts Options) *Guard {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	return &Guard{
		token:      opts.Token,
		allowQuery: opts.AllowQueryParam,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

// Allowed reports whether r carries the admin token, or the admin query
// parameter when that gate is enabled. An empty configured token never matches.
func (g *Guard) Allowed(r *http.Request) bool {
	if g.token != "" {
		if got := r.Header.Get(HeaderName); got != "" && cryptoutil.TokenEqual(got, g.token) {
			return true
		}
	}
	return g.allowQuery && r.URL.Query().Get(QueryParam) == "1"
}

// Require short-circuits with 401 {"error":"unauthorized"} when the
// request is not allowed. next is never called on denial.
func (g *Guard) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.Allowed(r) {
			g.deny(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Guard) deny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	g.logger.Debug(ctx, "admin request denied",
		"method", r.Method,
		"path", r.URL.Path,
		"has_header", r.Header.Get(HeaderName) != "",
	)
	if g.metrics != nil {
		route := r.URL.Path
		if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		g.metrics.IncAdminDenied(route)
	}
	httpjson.Error(ctx, w, http.StatusUnauthorized, "unauthorized")
}
