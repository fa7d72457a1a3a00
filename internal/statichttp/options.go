package statichttp

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/sitebuilder/internal/log"
)

var ErrInvalidOptions = errors.New("statichttp: invalid options")

type Options struct {
	Logger log.Logger

	Assets     fs.FS
	FallbackFS fs.FS

	// Names inside FallbackFS. Defaults maintenance.html and 404.html.
	MaintenanceFile string
	NotFoundFile    string

	// Cache-Control by extension. HTML and extensionless files default to
	// no-cache, static asset types to a day, anything else to an hour.
	HTMLCacheControl  string
	AssetCacheControl string
	OtherCacheControl string
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.NotFoundFile == "" {
		o.NotFoundFile = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	// not content-hashed, so not immutable
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Assets == nil {
		return fmt.Errorf("%w: Assets is nil", ErrInvalidOptions)
	}
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	return nil
}
