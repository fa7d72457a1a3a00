// Package httpjson writes the JSON responses and error envelopes shared by
// the API handlers.
package httpjson

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/keithlinneman/sitebuilder/internal/log"
)

const contentType = "application/json; charset=utf-8"

// ErrorBody is the error envelope returned by every API route.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// Write encodes v as the response body.
func Write(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).Warn(ctx, "failed to encode JSON response", "error", err)
	}
}

// WriteRaw sends already-encoded JSON unchanged.
func WriteRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func Error(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	Write(ctx, w, status, ErrorBody{Error: msg})
}

func ErrorDetails(ctx context.Context, w http.ResponseWriter, status int, msg string, details any) {
	Write(ctx, w, status, ErrorBody{Error: msg, Details: details})
}
