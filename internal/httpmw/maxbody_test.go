package httpmw

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/", strings.NewReader("tiny")))
	if readErr != nil {
		t.Fatalf("small body: %v", readErr)
	}

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/", strings.NewReader("much too large")))
	if !IsBodyTooLarge(readErr) {
		t.Fatalf("expected body too large, got %v", readErr)
	}
}

func TestIsBodyTooLarge_OtherErrors(t *testing.T) {
	if IsBodyTooLarge(io.ErrUnexpectedEOF) {
		t.Fatal("unexpected match")
	}
}
