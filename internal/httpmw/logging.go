package httpmw

import (
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/sitebuilder/internal/log"
)

// WithLogger puts a per-request logger in the context. It carries the
// request id, client address, method and path, never the query string,
// which may hold the admin token.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, client, peer, scheme := RequestIDFromContext(ctx), ClientIPFromContext(ctx), peerHost(r), requestScheme(r)

			trace.SpanFromContext(ctx).SetAttributes(
				attribute.String("request_id", id),
				attribute.String("client.address", client),
				attribute.String("network.peer.address", peer),
				attribute.String("url.scheme", scheme),
			)
			ctx = log.WithContext(ctx, base.With(
				"request_id", id,
				"client.address", client,
				"network.peer.address", peer,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccessLog logs each finished request, except static assets and the
// /-/ probe paths.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newRecorder(w, r)
			next.ServeHTTP(rec, r)
			rec.close()
			if quietPath(r.URL.Path) {
				return
			}
			ctx := r.Context()
			log.FromContext(ctx).Info(ctx, "http request",
				"http.response.status_code", rec.status(),
				"http.server.request.duration", time.Since(rec.started).Seconds(),
				"http.response.body.size", rec.written,
				"http.request.body.size", max(r.ContentLength, 0),
				"http.route", routePattern(r),
			)
		})
	}
}

// Scope names the handler on the request logger and span.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := log.WithFields(r.Context(), "handler", handler)
			trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.handler", handler))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func quietPath(p string) bool {
	return p == "/favicon.ico" || strings.HasPrefix(p, "/static/") || strings.HasPrefix(p, "/-/")
}

func peerHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestScheme trusts X-Forwarded-Proto because ClientIP has already
// stripped forwarding headers from untrusted peers.
func requestScheme(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		switch s := strings.ToLower(strings.TrimSpace(first)); s {
		case "http", "https":
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
