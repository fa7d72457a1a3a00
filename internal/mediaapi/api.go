// Package mediaapi exposes the media bucket: admin listing, deletion and
// presigned browser uploads, plus the public image gallery listing.
package mediaapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/adminauth"
	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

const (
	DefaultLimit  = 100
	MaxLimit      = 1000
	DefaultExpiry = 300 * time.Second
	MaxExpiry     = 3600 * time.Second

	// UploadPrefix is where presigned uploads land when no key is given.
	UploadPrefix = "uploads/"
)

type Options struct {
	Logger log.Logger
	Store  blobstore.Store
	URLs   blobstore.URLBuilder
	Guard  *adminauth.Guard
	// Bucket is the only value accepted for the ?bucket= list parameter.
	Bucket string
	// Expiry is the presign default when the request does not ask for one.
	Expiry       time.Duration
	AdminLimiter func(http.Handler) http.Handler
}

type API struct {
	logger  log.Logger
	store   blobstore.Store
	urls    blobstore.URLBuilder
	guard   *adminauth.Guard
	bucket  string
	expiry  time.Duration
	limiter func(http.Handler) http.Handler
}

func New(opts Options) (*API, error) {
	if opts.Guard == nil {
		return nil, xerrors.New("mediaapi: Guard is required")
	}
	if opts.Store == nil {
		opts.Store = blobstore.Unconfigured{}
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.Expiry <= 0 {
		opts.Expiry = DefaultExpiry
	}
	if opts.Expiry > MaxExpiry {
		opts.Expiry = MaxExpiry
	}
	return &API{
		logger:  opts.Logger,
		store:   opts.Store,
		urls:    opts.URLs,
		guard:   opts.Guard,
		bucket:  opts.Bucket,
		expiry:  opts.Expiry,
		limiter: opts.AdminLimiter,
	}, nil
}

// Routes registers the media routes on r, mounted at /api.
func (a *API) Routes(r chi.Router) {
	r.With(httpmw.Scope("gallery")).Get("/gallery", a.gallery)

	r.Group(func(r chi.Router) {
		r.Use(a.guard.Require)
		if a.limiter != nil {
			r.Use(a.limiter)
		}
		r.Use(httpmw.Scope("media-admin"))

		r.Get("/admin/media", a.list)
		r.Delete("/admin/media", a.delete)
		r.Post("/admin/media/presign", a.presign)
	})
}
