// Package blobstore is the object storage layer behind site configs and
// media. S3Store talks to S3 or an S3-compatible endpoint; MemStore keeps
// objects in process for mock mode and tests.
package blobstore
