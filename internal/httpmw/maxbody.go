package httpmw

import (
	"errors"
	"net/http"
)

// DefaultMaxBody caps JSON config and form payloads.
const DefaultMaxBody int64 = 1 << 20

// MaxBody limits request body size. Reads past the limit fail with an
// error IsBodyTooLarge recognizes; handlers answer 413.
func MaxBody(n int64) func(http.Handler) http.Handler {
	if n <= 0 {
		n = DefaultMaxBody
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func IsBodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
