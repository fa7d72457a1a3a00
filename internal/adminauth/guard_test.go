package adminauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

type spyMetrics struct{ denied []string }

func (s *spyMetrics) IncAdminDenied(route string) { s.denied = append(s.denied, route) }

func TestGuard_Allowed(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		allowQuery bool
		header     string
		query      string
		want       bool
	}{
		{"header match", "s3cret", false, "s3cret", "", true},
		{"header mismatch", "s3cret", false, "nope", "", false},
		{"no header", "s3cret", false, "", "", false},
		{"query gate off", "s3cret", false, "", "admin=1", false},
		{"query gate on", "s3cret", true, "", "admin=1", true},
		{"query gate wrong value", "", true, "", "admin=true", false},
		{"empty token never matches", "", false, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(Options{Token: tt.token, AllowQueryParam: tt.allowQuery})
			r := httptest.NewRequest(http.MethodPut, "/api/config?"+tt.query, nil)
			if tt.header != "" {
				r.Header.Set(HeaderName, tt.header)
			}
			if got := g.Allowed(r); got != tt.want {
				t.Fatalf("Allowed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGuard_RequireDenies(t *testing.T) {
	spy := &spyMetrics{}
	g := New(Options{Token: "s3cret", Metrics: spy})

	called := false
	h := g.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader("{}")))

	if called {
		t.Fatal("wrapped handler must not run on denial")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"unauthorized"}` {
		t.Fatalf("body = %s", got)
	}
	if len(spy.denied) != 1 || spy.denied[0] != "/api/config" {
		t.Fatalf("denied = %v", spy.denied)
	}
}

func TestGuard_RequireAllows(t *testing.T) {
	g := New(Options{Token: "s3cret"})
	h := g.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	r := httptest.NewRequest(http.MethodPost, "/api/config/publish", nil)
	r.Header.Set(HeaderName, "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
}

type fakeSSM struct {
	value *string
	err   error
	in    *ssm.GetParameterInput
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: f.value}}, nil
}

func TestLoadTokenFromSSM(t *testing.T) {
	f := &fakeSSM{value: aws.String("  s3cret\n")}
	got, err := LoadTokenFromSSM(context.Background(), f, "/sitebuilder/admin-token")
	if err != nil {
		t.Fatal(err)
	}
	if got != "s3cret" {
		t.Errorf("token = %q", got)
	}
	if !aws.ToBool(f.in.WithDecryption) {
		t.Error("expected WithDecryption")
	}
}

func TestLoadTokenFromSSM_Errors(t *testing.T) {
	for _, f := range []*fakeSSM{
		{err: errors.New("throttled")},
		{value: nil},
		{value: aws.String("   ")},
	} {
		if _, err := LoadTokenFromSSM(context.Background(), f, "p"); err == nil {
			t.Errorf("expected error for %+v", f)
		}
	}
}
