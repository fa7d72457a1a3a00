package configapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/sections"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

type typesResult struct {
	Types []sections.Kind `json:"types"`
}

type sectionResult struct {
	OK       bool               `json:"ok"`
	Variant  string             `json:"variant,omitempty"`
	Appended bool               `json:"appended"`
	Section  siteconfig.Section `json:"section"`
}

type deleteResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

func (a *API) sectionTypes(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(r.Context(), w, http.StatusOK, typesResult{Types: a.registry.Kinds()})
}

// createSection builds a section of ?type= with default fields and a new
// id. With append=1 it is also added to the end of the variant's config.
func (a *API) createSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	typ := q.Get("type")
	if typ == "" {
		// the overlay posts the type as a form field
		if err := r.ParseForm(); err == nil {
			typ = r.PostForm.Get("type")
		}
	}
	sec, err := a.registry.New(typ)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	appendIt, _ := strconv.ParseBool(q.Get("append"))
	if !appendIt {
		httpjson.Write(ctx, w, http.StatusOK, sectionResult{OK: true, Section: sec})
		return
	}

	v, err := siteconfig.ParseVariant(q.Get("variant"), siteconfig.Draft)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.load(ctx, v)
	if err != nil {
		writeReadError(ctx, w, err, "config not found")
		return
	}
	cfg.Sections = append(cfg.Sections, sec)
	if err := a.save(ctx, cfg, v); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusCreated, sectionResult{OK: true, Variant: v.String(), Appended: true, Section: sec})
}

// updateSection replaces one section. A JSON body is the whole section
// (raw editor); a form body sets the kind's fields (form editor).
func (a *API) updateSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	v, err := siteconfig.ParseVariant(r.URL.Query().Get("variant"), siteconfig.Draft)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := a.load(ctx, v)
	if err != nil {
		writeReadError(ctx, w, err, "config not found")
		return
	}
	idx := indexOf(cfg.Sections, id)
	if idx < 0 {
		httpjson.Error(ctx, w, http.StatusNotFound, errSectionNotFound.Error())
		return
	}
	orig := cfg.Sections[idx]

	var next siteconfig.Section
	if isJSON(r) {
		body, rerr := io.ReadAll(r.Body)
		if rerr != nil {
			writeBodyError(ctx, w, rerr)
			return
		}
		next, err = sections.ApplyJSON(orig, string(body))
	} else {
		if err := r.ParseForm(); err != nil {
			writeBodyError(ctx, w, err)
			return
		}
		kind, _ := a.registry.Lookup(orig.Type)
		next, err = sections.ApplyForm(orig, kind, r.PostForm)
	}
	if err != nil {
		httpjson.ErrorDetails(ctx, w, http.StatusBadRequest, "invalid section", err.Error())
		return
	}
	if next.ID != id {
		httpjson.Error(ctx, w, http.StatusBadRequest, "section id cannot be changed")
		return
	}

	cfg.Sections[idx] = next
	if err := a.save(ctx, cfg, v); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusOK, sectionResult{OK: true, Variant: v.String(), Section: next})
}

func (a *API) deleteSection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	v, err := siteconfig.ParseVariant(r.URL.Query().Get("variant"), siteconfig.Draft)
	if err != nil {
		httpjson.Error(ctx, w, http.StatusBadRequest, err.Error())
		return
	}
	cfg, err := a.load(ctx, v)
	if err != nil {
		writeReadError(ctx, w, err, "config not found")
		return
	}
	idx := indexOf(cfg.Sections, id)
	if idx < 0 {
		httpjson.Error(ctx, w, http.StatusNotFound, errSectionNotFound.Error())
		return
	}
	cfg.Sections = append(cfg.Sections[:idx], cfg.Sections[idx+1:]...)
	if err := a.save(ctx, cfg, v); err != nil {
		writeStoreError(ctx, w, err)
		return
	}
	httpjson.Write(ctx, w, http.StatusOK, deleteResult{OK: true, ID: id})
}

// indexOf returns the first section with id; duplicates after it are left alone.
func indexOf(secs []siteconfig.Section, id string) int {
	for i, s := range secs {
		if s.ID == id {
			return i
		}
	}
	return -1
}
