package configapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/cryptoutil"
	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/theme"
)

// SourceHeader names where a served config came from.
const SourceHeader = "X-Config-Source"

type writeResult struct {
	OK      bool   `json:"ok"`
	Variant string `json:"variant"`
}

type publishResult struct {
	OK     bool   `json:"ok"`
	Backup string `json:"backup"`
}

type themeResult struct {
	OK      bool             `json:"ok"`
	Variant string           `json:"variant"`
	Theme   siteconfig.Theme `json:"theme"`
}

func (a *API) getConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := siteconfig.ParseVariant(r.URL.Query().Get("variant"), siteconfig.Published)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if a.mock {
		raw, name := a.fixtures.Lookup(a.siteID)
		w.Header().Set(SourceHeader, "fixture:"+name)
		serveJSON(w, r, raw)
		return
	}

	raw, err := a.store.Read(ctx, v)
	if err == nil {
		err = siteconfig.Validate(raw)
	}
	if err != nil {
		writeReadError(ctx, w, err, "config not found")
		return
	}
	w.Header().Set(SourceHeader, v.String())
	serveJSON(w, r, raw)
}

// serveJSON writes raw with a strong ETag and answers a matching
// If-None-Match with 304.
func serveJSON(w http.ResponseWriter, r *http.Request, raw []byte) {
	etag := cryptoutil.StrongETag(raw)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	httpjson.WriteRaw(w, http.StatusOK, raw)
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, cand := range strings.Split(header, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || strings.TrimPrefix(cand, "W/") == etag {
			return true
		}
	}
	return false
}

func (a *API) putConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := siteconfig.ParseVariant(r.URL.Query().Get("variant"), siteconfig.Draft)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err == nil {
		err = siteconfig.Validate(raw)
	}
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	a.warnDuplicateIDs(ctx, raw)

	// stored verbatim so the next GET returns the same bytes
	if err := a.store.Write(ctx, raw, v); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusOK, writeResult{OK: true, Variant: v.String()})
}

func (a *API) publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := a.store.PublishWithBackup(ctx)
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		a.countPublish("not_found")
		httpjson.Error(ctx, w, http.StatusNotFound, "draft not found")
		return
	case err != nil:
		a.countPublish("error")
		if key != "" {
			log.FromContext(ctx).Warn(ctx, "draft backed up but not published", "backup", key)
		}
		writeStoreError(ctx, w, err)
		return
	}
	a.countPublish("ok")
	httpjson.Write(ctx, w, http.StatusOK, publishResult{OK: true, Backup: key})
}

func (a *API) countPublish(result string) {
	if a.metrics != nil {
		a.metrics.IncConfigPublish(result)
	}
}

func (a *API) patchTheme(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	v, err := siteconfig.ParseVariant(r.URL.Query().Get("variant"), siteconfig.Draft)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := decodeThemePatch(r)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	if problems := theme.CheckPatch(patch); len(problems) > 0 {
		httpjson.ErrorDetails(ctx, w, http.StatusBadRequest, "invalid theme", problems)
		return
	}

	cfg, err := a.load(ctx, v)
	if err != nil {
		writeReadError(ctx, w, err, "config not found")
		return
	}
	cfg.Theme = theme.Merge(cfg.Theme, patch)
	if err := a.save(ctx, cfg, v); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusOK, themeResult{OK: true, Variant: v.String(), Theme: cfg.Theme})
}

// decodeThemePatch accepts a JSON theme object or the overlay's form post.
func decodeThemePatch(r *http.Request) (siteconfig.Theme, error) {
	var patch siteconfig.Theme
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			return patch, errors.Join(siteconfig.ErrMalformed, err)
		}
		return patch, nil
	}
	if err := r.ParseForm(); err != nil {
		return patch, err
	}
	patch.Preset = strings.TrimSpace(r.PostForm.Get("preset"))
	patch.Primary = strings.TrimSpace(r.PostForm.Get("primary"))
	patch.Accent = strings.TrimSpace(r.PostForm.Get("accent"))
	patch.Radius = strings.TrimSpace(r.PostForm.Get("radius"))
	return patch, nil
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// load reads and decodes a stored variant.
func (a *API) load(ctx context.Context, v siteconfig.Variant) (*siteconfig.SiteConfig, error) {
	raw, err := a.store.Read(ctx, v)
	if err != nil {
		return nil, err
	}
	return siteconfig.Decode(raw)
}

// save re-encodes cfg and writes it. Unknown top-level keys are not kept.
func (a *API) save(ctx context.Context, cfg *siteconfig.SiteConfig, v siteconfig.Variant) error {
	raw, err := siteconfig.Encode(cfg)
	if err != nil {
		return err
	}
	return a.store.Write(ctx, raw, v)
}

func (a *API) warnDuplicateIDs(ctx context.Context, raw []byte) {
	cfg, err := siteconfig.Decode(raw)
	if err != nil {
		return
	}
	if dups := cfg.DuplicateIDs(); len(dups) > 0 {
		log.FromContext(ctx).Warn(ctx, "config has duplicate section ids", "ids", dups)
	}
}
