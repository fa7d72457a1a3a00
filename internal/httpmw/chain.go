package httpmw

import (
	"net/http"
	"slices"
)

// Chain wraps h so the first middleware listed runs first. Nil entries are skipped.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for _, mw := range slices.Backward(mws) {
		if mw != nil {
			h = mw(h)
		}
	}
	return h
}
