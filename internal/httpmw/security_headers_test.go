package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestContentSecurityPolicy(t *testing.T) {
	csp := ContentSecurityPolicy(CSPOptions{
		ImageHosts:   []string{"https://cdn.example.com"},
		ConnectHosts: []string{"https://bucket.s3.us-east-2.amazonaws.com"},
	})
	for _, want := range []string{
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: https://cdn.example.com",
		"connect-src 'self' https://bucket.s3.us-east-2.amazonaws.com",
		"frame-src https://www.youtube-nocookie.com",
		"frame-ancestors 'none'",
	} {
		if !strings.Contains(csp, want) {
			t.Errorf("csp missing %q: %s", want, csp)
		}
	}
}

func TestContentSecurityPolicy_NoFrames(t *testing.T) {
	csp := ContentSecurityPolicy(CSPOptions{FrameHosts: []string{}})
	if !strings.Contains(csp, "frame-src 'none'") {
		t.Fatalf("csp = %s", csp)
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(CSPOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	for _, k := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy", "Strict-Transport-Security"} {
		if rec.Header().Get(k) == "" {
			t.Errorf("missing %s", k)
		}
	}
	if rec.Header().Get("Cross-Origin-Embedder-Policy") != "" {
		t.Error("COEP would block CDN images")
	}
}
