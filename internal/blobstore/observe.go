package blobstore

import (
	"context"
	"errors"
	"time"
)

// Observer receives one call per storage operation. Implemented by the
// metrics package.
type Observer interface {
	ObserveStorageOp(op, result string, seconds float64)
}

type observed struct {
	Store
	obs Observer
}

// WithObserver wraps s so every operation is reported to obs.
func WithObserver(s Store, obs Observer) Store {
	if obs == nil {
		return s
	}
	return &observed{Store: s, obs: obs}
}

func (o *observed) done(op string, start time.Time, err error) {
	o.obs.ObserveStorageOp(op, resultOf(err), time.Since(start).Seconds())
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrNoBucket):
		return "no_bucket"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}

func (o *observed) Get(ctx context.Context, key string) ([]byte, Object, error) {
	start := time.Now()
	b, obj, err := o.Store.Get(ctx, key)
	o.done("get", start, err)
	return b, obj, err
}

func (o *observed) Put(ctx context.Context, key string, body []byte, contentType string) error {
	start := time.Now()
	err := o.Store.Put(ctx, key, body, contentType)
	o.done("put", start, err)
	return err
}

func (o *observed) List(ctx context.Context, opts ListOptions) ([]Object, error) {
	start := time.Now()
	objs, err := o.Store.List(ctx, opts)
	o.done("list", start, err)
	return objs, err
}

func (o *observed) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := o.Store.Delete(ctx, key)
	o.done("delete", start, err)
	return err
}

func (o *observed) Copy(ctx context.Context, srcKey, dstKey string) error {
	start := time.Now()
	err := o.Store.Copy(ctx, srcKey, dstKey)
	o.done("copy", start, err)
	return err
}

func (o *observed) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (PresignedRequest, error) {
	start := time.Now()
	req, err := o.Store.PresignPut(ctx, key, contentType, expiry)
	o.done("presign", start, err)
	return req, err
}

func (o *observed) Ping(ctx context.Context) error {
	start := time.Now()
	err := o.Store.Ping(ctx)
	o.done("ping", start, err)
	return err
}
