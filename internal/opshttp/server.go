// Package opshttp is the operator listener: Prometheus metrics, health and
// readiness, and pprof. It binds a separate port that is never exposed
// publicly.
package opshttp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/keithlinneman/sitebuilder/internal/health"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/httpserver"
	"github.com/keithlinneman/sitebuilder/internal/log"
)

func NewHandler(L log.Logger, opts *Options) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/-/healthy", health.HealthzHandler(opts.Health))
	mux.Handle("/-/ready", health.ReadyzHandler(opts.Readiness...))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}
	if !opts.UseRecoverMW {
		return mux
	}
	return httpmw.Recover(L, opts.OnPanic)(mux)
}

// Start serves NewHandler on opts.Port, 9000 by default.
func Start(ctx context.Context, L log.Logger, opts *Options) (httpserver.StopFunc, error) {
	port := opts.Port
	if port == 0 {
		port = 9000
	}
	srv := httpserver.NewServer(fmt.Sprintf(":%d", port), NewHandler(L, opts))
	srv.ReadTimeout = 10 * time.Second
	// /debug/pprof/profile?seconds=30 streams for the whole window
	srv.WriteTimeout = 60 * time.Second
	return httpserver.Serve(ctx, L, "ops", srv)
}
