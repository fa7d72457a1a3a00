// Package ratelimit provides per-IP token bucket limiting for the public
// listener, with idle entries evicted in the background.
//
// State is in-memory and per-instance. It caps what one address can do to
// a single process; distributed floods belong to the CDN or WAF in front.
// Two limiters are normally mounted: a general one for all traffic and a
// tighter one in front of admin routes, since the admin token is a static
// shared secret.
package ratelimit
