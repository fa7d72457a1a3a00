// Package sections renders site sections by type and describes how each
// type is created and edited in the admin overlay.
//
// The display side is a set of html/template fragments named
// "section:<type>". The admin side is a registry of labels, default fields
// and editor kinds; types without a form editor are edited as raw JSON.
package sections
