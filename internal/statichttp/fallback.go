package statichttp

import (
	"io/fs"
	"net/http"
	"strconv"
)

// ServeMaintenance answers 503 with the maintenance page. Used when no
// configuration can be found for a site.
func (h *Handler) ServeMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	h.servePage(w, r, http.StatusServiceUnavailable, h.opts.MaintenanceFile)
}

// ServeNotFound answers 404 with the 404 page, or plain text when the
// fallback FS has none.
func (h *Handler) ServeNotFound(w http.ResponseWriter, r *http.Request) {
	if isFile(h.opts.FallbackFS, h.opts.NotFoundFile) {
		h.servePage(w, r, http.StatusNotFound, h.opts.NotFoundFile)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

// servePage writes a fallback HTML page with a fixed status. Error pages
// are never cached and carry no validators.
func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, status int, name string) {
	body, err := fs.ReadFile(h.opts.FallbackFS, name)
	if err != nil {
		h.opts.Logger.Error(r.Context(), err, "fallback page unreadable", "file", name)
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}
