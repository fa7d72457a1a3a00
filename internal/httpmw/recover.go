package httpmw

import (
	"errors"
	"net/http"

	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// Recover answers 500 when a handler panics and logs the panic with the
// stack of the panicking goroutine. http.ErrAbortHandler is re-raised so
// net/http still drops the connection quietly. onPanic may be nil.
func Recover(logger log.Logger, onPanic func()) func(http.Handler) http.Handler {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				if onPanic != nil {
					onPanic()
				}
				// still inside the panicking frames, so the captured stack
				// points at the panic site
				err := xerrors.Newf("panic: %v", v)
				ctx := r.Context()
				logger.Error(ctx, err, "http handler panic",
					"request_id", RequestIDFromContext(ctx),
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
