// Package cryptoutil holds the small hashing and comparison helpers used for
// config ETags and admin token checks.
package cryptoutil
