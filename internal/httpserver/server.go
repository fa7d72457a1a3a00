// Package httpserver assembles the public listener: the chi router for
// pages, assets and /api, wrapped in the request middleware stack.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/sitebuilder/internal/health"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/log"
)

var compressible = []string{
	"text/html", "text/css", "text/javascript", "application/javascript",
	"application/json", "image/svg+xml",
}

// NewHandler returns the routed handler with middleware applied.
func NewHandler(opts *Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	var recoverMW func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(opts.Logger, opts.OnPanic)
	}

	// outermost first
	return httpmw.Chain(routes(opts),
		httpmw.SecurityHeaders(opts.CSP),
		recoverMW,
		httpmw.RequestID("X-Request-Id"),
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		otelhttp.NewMiddleware("http.server",
			otelhttp.WithFilter(func(r *http.Request) bool { return traced(r.URL.Path) }),
			// AnnotateHTTPRoute renames the span to the route pattern
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string { return r.Method + " " + r.URL.Path }),
			otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
		),
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		opts.MetricsMW,
		httpmw.WithLogger(opts.Logger),
	)
}

func routes(opts *Options) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.Compress(5, compressible...),
		httpmw.AnnotateHTTPRoute(opts.SiteID),
		httpmw.AccessLog(),
		httpmw.MaxBody(opts.MaxBody),
	)

	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if len(opts.Readiness) > 0 {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness...))
	}
	if opts.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static", opts.Static))
	}
	if opts.Page != nil {
		r.Method(http.MethodGet, "/", opts.Page)
		r.Method(http.MethodHead, "/", opts.Page)
	}
	if opts.APIRoutes != nil {
		r.Route("/api", opts.APIRoutes)
	}
	if opts.NotFound != nil {
		r.NotFound(opts.NotFound.ServeHTTP)
	}
	return r
}

var untracedExts = map[string]bool{
	".css": true, ".js": true, ".map": true, ".woff2": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true, ".svg": true, ".ico": true,
}

// traced skips probes, robots and static assets.
func traced(p string) bool {
	switch p {
	case "/favicon.ico", "/robots.txt", "/-/healthy", "/-/ready":
		return false
	}
	return !strings.HasPrefix(p, "/static/") && !untracedExts[strings.ToLower(path.Ext(p))]
}

// Start serves NewHandler on opts.Port, 8080 by default.
func Start(ctx context.Context, opts *Options) (StopFunc, error) {
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	srv := NewServer(fmt.Sprintf(":%d", port), NewHandler(opts))
	return Serve(ctx, opts.Logger.With("site_id", opts.SiteID), "http", srv)
}
