package health

import (
	"context"
	"net/http"

	"github.com/keithlinneman/sitebuilder/internal/httpjson"
)

// Check is one named readiness probe.
type Check struct {
	Name  string
	Probe Probe
}

// Report is the readiness response body. Checks maps check name to "ok"
// or the failure reason.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthzHandler answers liveness in plain text.
func HealthzHandler(p Probe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				http.Error(w, err.Error()+"\n", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}
}

// ReadyzHandler runs every check and reports each result. Any failure
// makes the response 503.
func ReadyzHandler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep := Evaluate(r.Context(), checks...)
		status := http.StatusOK
		if rep.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		httpjson.Write(r.Context(), w, status, rep)
	}
}

// Evaluate runs checks in order; nil probes count as passing.
func Evaluate(ctx context.Context, checks ...Check) Report {
	rep := Report{Status: "ready", Checks: make(map[string]string, len(checks))}
	for _, c := range checks {
		if c.Probe == nil {
			rep.Checks[c.Name] = "ok"
			continue
		}
		if err := c.Probe.Check(ctx); err != nil {
			rep.Checks[c.Name] = err.Error()
			rep.Status = "not_ready"
			continue
		}
		rep.Checks[c.Name] = "ok"
	}
	return rep
}
