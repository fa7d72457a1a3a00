package blobstore

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrNoBucket = errors.New("no storage bucket configured")
)

type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
	ContentType  string    `json:"-"`
}

type ListOptions struct {
	Prefix string
	// Limit caps the number of objects returned; zero means no cap.
	Limit int
	// Recursive lists below nested prefixes. When false, "/" is the delimiter.
	Recursive bool
}

// PresignedRequest is a signed PUT the browser can send directly to storage.
type PresignedRequest struct {
	URL     string      `json:"url"`
	Method  string      `json:"method"`
	Headers http.Header `json:"headers"`
}

type Store interface {
	Get(ctx context.Context, key string) ([]byte, Object, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	List(ctx context.Context, opts ListOptions) ([]Object, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string) error
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (PresignedRequest, error)
	Ping(ctx context.Context) error
}

// URLBuilder derives public object URLs.
type URLBuilder struct {
	CDNBase string
	Bucket  string
	Region  string
}

// PublicURL returns <cdnBase>/<key> when a CDN base is set, otherwise the
// virtual-hosted bucket URL.
func (u URLBuilder) PublicURL(key string) string {
	key = strings.TrimLeft(key, "/")
	if u.CDNBase != "" {
		return strings.TrimRight(u.CDNBase, "/") + "/" + key
	}
	region := u.Region
	if region == "" {
		region = "us-east-1"
	}
	return "https://" + u.Bucket + ".s3." + region + ".amazonaws.com/" + key
}

// Unconfigured is the Store used when no bucket is set outside mock mode.
// Every operation, reads included, fails with ErrNoBucket.
type Unconfigured struct{}

func (Unconfigured) Get(context.Context, string) ([]byte, Object, error) {
	return nil, Object{}, ErrNoBucket
}
func (Unconfigured) Put(context.Context, string, []byte, string) error { return ErrNoBucket }
func (Unconfigured) List(context.Context, ListOptions) ([]Object, error) {
	return nil, ErrNoBucket
}
func (Unconfigured) Delete(context.Context, string) error       { return ErrNoBucket }
func (Unconfigured) Copy(context.Context, string, string) error { return ErrNoBucket }
func (Unconfigured) PresignPut(context.Context, string, string, time.Duration) (PresignedRequest, error) {
	return PresignedRequest{}, ErrNoBucket
}
func (Unconfigured) Ping(context.Context) error { return ErrNoBucket }
