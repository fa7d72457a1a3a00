// Package siteconfig defines the JSON site configuration rendered by the
// page shell: a theme, optional page metadata and an ordered list of typed
// sections. Section fields are kept verbatim so unknown section types and
// fields survive a decode/encode cycle.
package siteconfig
