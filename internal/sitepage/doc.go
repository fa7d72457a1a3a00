// Package sitepage renders the public page for one site and, for admins,
// the editing overlay.
//
// The config comes from the first source that works: the preferred
// variant, the other variant, the last config this process rendered, then
// the bundled fixture. The page always renders something; the maintenance
// page is only served when the templates themselves fail.
package sitepage
