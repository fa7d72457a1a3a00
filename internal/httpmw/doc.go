// Package httpmw provides HTTP middleware for the public listener.
//
// httpserver composes them outermost first: panic recovery, security
// headers, request ID, client IP, rate limit, OTel tracing, route
// annotation, metrics, request logger, access log, body limit, then the
// chi router.
//
// Request bodies, headers other than the request id, and the admin token
// are never logged.
package httpmw
