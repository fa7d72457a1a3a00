// Package statichttp serves the embedded static assets and the fallback
// maintenance and 404 pages.
package statichttp

import (
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/keithlinneman/sitebuilder/internal/pathutil"
)

type Handler struct {
	opts Options
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: *opts}, nil
}

// ServeHTTP serves r.URL.Path from Assets and must sit behind
// http.StripPrefix. Only GET and HEAD are accepted.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	name, ok := assetName(h.opts.Assets, r.URL.Path)
	if !ok {
		h.ServeNotFound(w, r)
		return
	}
	if cc := h.opts.cachePolicy(name); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.Assets, name)
}

var assetExts = map[string]bool{
	".css": true, ".js": true, ".mjs": true, ".map": true,
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
	".svg": true, ".ico": true, ".avif": true,
	".woff": true, ".woff2": true, ".ttf": true,
}

func (o *Options) cachePolicy(name string) string {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case ext == "" || ext == ".html":
		return o.HTMLCacheControl
	case assetExts[ext]:
		return o.AssetCacheControl
	}
	return o.OtherCacheControl
}

// assetName turns a stripped URL path into an fs name. Traversal attempts,
// backslashes, NULs and directories all resolve to not found.
func assetName(fsys fs.FS, urlPath string) (string, bool) {
	if strings.ContainsAny(urlPath, "\x00\\") || strings.Contains(urlPath, "..") ||
		strings.HasSuffix(urlPath, "/") || pathutil.HasDotSegments(urlPath) {
		return "", false
	}
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	return name, isFile(fsys, name)
}

func isFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	fi, err := fs.Stat(fsys, name)
	return err == nil && !fi.IsDir()
}
