package opshttp

import (
	"net/http"

	"github.com/keithlinneman/sitebuilder/internal/health"
)

type Options struct {
	// Port defaults to 9000.
	Port    int
	Metrics http.Handler
	// EnablePprof mounts /debug/pprof/; otherwise it answers 404.
	EnablePprof bool

	Health    health.Probe
	Readiness []health.Check

	UseRecoverMW bool
	OnPanic      func()
}
