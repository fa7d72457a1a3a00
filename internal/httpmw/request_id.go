package httpmw

import (
	"cmp"
	"context"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxRequestIDLen = 128

type requestIDKey struct{}

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns "" when the request has no id.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID propagates a well-formed incoming request id header or mints a
// UUID, stores it in the context and echoes it on the response.
func RequestID(headerName string) func(http.Handler) http.Handler {
	headerName = cmp.Or(headerName, "X-Request-Id")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerName)
			if !validRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(headerName, id)
			next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
		})
	}
}

// validRequestID accepts short ids of letters, digits and -_.: so that
// caller supplied values are safe to log.
func validRequestID(id string) bool {
	return id != "" && len(id) <= maxRequestIDLen && strings.IndexFunc(id, notIDRune) < 0
}

func notIDRune(c rune) bool {
	isAlnum := c < utf8.RuneSelf && (unicode.IsLetter(c) || unicode.IsDigit(c))
	return !isAlnum && !strings.ContainsRune("-_.:", c)
}
