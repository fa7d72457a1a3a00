package configapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

var errSectionNotFound = errors.New("section not found")

// writeReadError maps a failure to load a stored config. notFound is the
// message used for a storage miss.
func writeReadError(ctx context.Context, w http.ResponseWriter, err error, notFound string) {
	var verr *siteconfig.ValidationError
	switch {
	case errors.Is(err, blobstore.ErrNotFound):
		httpjson.Error(ctx, w, http.StatusNotFound, notFound)
	case errors.As(err, &verr):
		httpjson.ErrorDetails(ctx, w, http.StatusInternalServerError, "invalid config", verr.Issues)
	case errors.Is(err, siteconfig.ErrMalformed):
		httpjson.ErrorDetails(ctx, w, http.StatusInternalServerError, "invalid config", err.Error())
	default:
		writeStoreError(ctx, w, err)
	}
}

// writeStoreError covers failures with no client-side cause.
func writeStoreError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		// client went away; nothing useful to send
		return
	}
	log.FromContext(ctx).Error(ctx, err, "config storage failure")
	if errors.Is(err, blobstore.ErrNoBucket) {
		httpjson.Error(ctx, w, http.StatusInternalServerError, "storage bucket not configured")
		return
	}
	httpjson.Error(ctx, w, http.StatusInternalServerError, "storage error")
}

// writeBodyError maps a client payload failure to 400, or 413 for an
// oversized body.
func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	var verr *siteconfig.ValidationError
	switch {
	case httpmw.IsBodyTooLarge(err):
		httpjson.Error(ctx, w, http.StatusRequestEntityTooLarge, "request body too large")
	case errors.As(err, &verr):
		httpjson.ErrorDetails(ctx, w, http.StatusBadRequest, "invalid config", verr.Issues)
	case errors.Is(err, siteconfig.ErrMalformed):
		httpjson.ErrorDetails(ctx, w, http.StatusBadRequest, "invalid json", err.Error())
	default:
		httpjson.ErrorDetails(ctx, w, http.StatusBadRequest, "invalid request", err.Error())
	}
}
