package webassets

import (
	"embed"
	"fmt"
	"io/fs"
)

// static/, fixtures/ and fallback/ must exist and have at least one file each to satisfy go:embed
//
//go:embed static fixtures fallback
var embedded embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(embedded, dir)
	if err != nil {
		panic(fmt.Errorf("webassets: %s subfs: %w", dir, err))
	}
	return s
}

// StaticFS holds the stylesheet and admin overlay script served under /static/.
func StaticFS() fs.FS { return sub("static") }

// FixturesFS holds the bundled mock site configs, one <site-id>.json per client.
func FixturesFS() fs.FS { return sub("fixtures") }

// FallbackFS holds the maintenance and 404 pages.
func FallbackFS() fs.FS { return sub("fallback") }
