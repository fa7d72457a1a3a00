package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHealthzHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthzHandler(Fixed(true, "")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", http.NoBody))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("healthy: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	HealthzHandler(Fixed(false, "wedged")).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", http.NoBody))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "wedged") {
		t.Fatalf("unhealthy: %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	HealthzHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("nil probe: %d", rec.Code)
	}
}

func TestReadyzHandler_ReportsEachCheck(t *testing.T) {
	h := ReadyzHandler(
		Check{Name: "storage", Probe: Fixed(false, "bucket unreachable")},
		Check{Name: "fixtures", Probe: Fixed(true, "")},
		Check{Name: "unset"},
	)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/ready", http.NoBody))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var rep Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatal(err)
	}
	if rep.Status != "not_ready" {
		t.Fatalf("status = %q", rep.Status)
	}
	if rep.Checks["storage"] != "bucket unreachable" || rep.Checks["fixtures"] != "ok" || rep.Checks["unset"] != "ok" {
		t.Fatalf("checks = %v", rep.Checks)
	}
}

func TestAll(t *testing.T) {
	if err := All(Fixed(true, ""), nil, Fixed(true, "")).Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	err := All(Fixed(true, ""), Fixed(false, "first"), Fixed(false, "second")).Check(context.Background())
	if err == nil || err.Error() != "first" {
		t.Fatalf("err = %v", err)
	}
}

func TestWithTimeout(t *testing.T) {
	slow := CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := WithTimeout(slow, 10*time.Millisecond).Check(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("err = %v", err)
	}
	if err := WithTimeout(nil, time.Second).Check(context.Background()); err != nil {
		t.Fatal(err)
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestStorage(t *testing.T) {
	boom := errors.New("no such bucket")
	if err := Storage(pingerFunc(func(context.Context) error { return boom })).Check(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if err := Storage(nil).Check(context.Background()); err == nil {
		t.Fatal("nil pinger should fail")
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()
	if err := p.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	g.Set("")
	if err := p.Check(context.Background()); err == nil || err.Error() != "draining" {
		t.Fatalf("err = %v", err)
	}
	g.Set("shutting down")
	if err := p.Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("err = %v", err)
	}
	g.Clear()
	if err := p.Check(context.Background()); err != nil {
		t.Fatal(err)
	}
}
