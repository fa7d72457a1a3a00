// Package prof starts continuous profiling with Pyroscope.
package prof

import (
	"context"
	"maps"
	"runtime"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	TenantID             string
	SiteID               string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int
	// OnState reports whether the profiler is running; may be nil.
	OnState func(active bool)
}

var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

// Start returns a stop func that is always safe to call.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	report := func(active bool) {
		if opts.OnState != nil {
			opts.OnState(active)
		}
	}

	if !opts.Enabled {
		report(false)
		L.Debug(ctx, "pyroscope disabled")
		return func() {}, nil
	}
	if opts.ServerAddress == "" {
		report(false)
		return func() {}, xerrors.New("pyroscope server address required")
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            Tags(opts),
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		report(false)
		return func() {}, xerrors.Wrapf(err, "start pyroscope server_address=%s", opts.ServerAddress)
	}
	report(true)
	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	return func() {
		profiler.Stop()
		report(false)
		L.Info(context.Background(), "pyroscope stopped", "app_name", opts.AppName)
	}, nil
}

// Tags merges the configured tags with the site id.
func Tags(opts Options) map[string]string {
	tags := make(map[string]string, len(opts.Tags)+1)
	maps.Copy(tags, opts.Tags)
	if opts.SiteID != "" {
		tags["site_id"] = opts.SiteID
	}
	return tags
}
