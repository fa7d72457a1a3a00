package health

import (
	"cmp"
	"context"
	"sync/atomic"
	"time"

	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// Probe returns nil when healthy, or the reason it is not.
type Probe interface{ Check(context.Context) error }

type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	var err error
	if !ok {
		err = xerrors.New(cmp.Or(reason, "unhealthy"))
	}
	return func(context.Context) error { return err }
}

// All returns the first failure among ps. Nil probes are skipped.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithTimeout bounds a probe that talks to the network. A deadline hit
// inside the probe is reported as a timeout rather than as whatever error
// the cancelled call produced.
func WithTimeout(p Probe, d time.Duration) CheckFunc {
	if p == nil {
		return func(context.Context) error { return nil }
	}
	return func(ctx context.Context) error {
		pctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		err := p.Check(pctx)
		if err != nil && pctx.Err() != nil && ctx.Err() == nil {
			return xerrors.Newf("timed out after %s", d)
		}
		return err
	}
}

// Pinger is satisfied by blobstore.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Storage reports whether the bucket answers.
func Storage(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return xerrors.New("storage not configured")
		}
		return p.Ping(ctx)
	}
}

// ShutdownGate fails readiness once set, so traffic drains before the
// listeners close. The zero value is open.
type ShutdownGate struct {
	reason atomic.Pointer[string]
}

func (g *ShutdownGate) Set(reason string) {
	reason = cmp.Or(reason, "draining")
	g.reason.Store(&reason)
}

func (g *ShutdownGate) Clear() { g.reason.Store(nil) }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if r := g.reason.Load(); r != nil {
			return xerrors.New(*r)
		}
		return nil
	}
}
