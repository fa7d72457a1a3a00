package mediaapi

import (
	"context"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/pathutil"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".avif": true, ".svg": true,
}

type galleryResult struct {
	Items []siteconfig.GalleryItem `json:"items"`
}

// IsImageKey reports whether key has an image file extension.
func IsImageKey(key string) bool {
	return imageExts[strings.ToLower(path.Ext(key))]
}

// Alt derives alt text from an object key: the file name without its
// extension or upload uuid, separators turned into spaces, title cased.
func Alt(key string) string {
	name := path.Base(key)
	name = strings.TrimSuffix(name, path.Ext(name))
	if len(name) > 37 && name[36] == '-' {
		if _, err := uuid.Parse(name[:36]); err == nil {
			name = name[37:]
		}
	}
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' || r == '.' || r == ' ' })
	if len(words) == 0 {
		return "Image"
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Gallery lists image objects under prefix. The page shell calls it to
// fill gallery sections server-side.
func (a *API) Gallery(ctx context.Context, prefix string, limit int, recursive bool) ([]siteconfig.GalleryItem, error) {
	objs, err := a.store.List(ctx, blobstore.ListOptions{Prefix: prefix, Limit: limit, Recursive: recursive})
	if err != nil {
		return nil, err
	}
	items := make([]siteconfig.GalleryItem, 0, len(objs))
	for _, o := range objs {
		if !IsImageKey(o.Key) {
			continue
		}
		items = append(items, siteconfig.GalleryItem{ImageURL: a.urls.PublicURL(o.Key), Alt: Alt(o.Key)})
	}
	return items, nil
}

func (a *API) gallery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	prefix, err := pathutil.CleanPrefix(q.Get("prefix"))
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, "invalid prefix")
		return
	}
	limit, err := parseLimit(q)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	recursive, _ := strconv.ParseBool(q.Get("recursive"))

	items, err := a.Gallery(ctx, prefix, limit, recursive)
	if err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusOK, galleryResult{Items: items})
}
