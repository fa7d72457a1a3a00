package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitebuilder/internal/adminauth"
	"github.com/keithlinneman/sitebuilder/internal/blobstore"
	"github.com/keithlinneman/sitebuilder/internal/cfg"
	"github.com/keithlinneman/sitebuilder/internal/configapi"
	"github.com/keithlinneman/sitebuilder/internal/configstore"
	"github.com/keithlinneman/sitebuilder/internal/fixtures"
	"github.com/keithlinneman/sitebuilder/internal/health"
	"github.com/keithlinneman/sitebuilder/internal/httpserver"
	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/mediaapi"
	"github.com/keithlinneman/sitebuilder/internal/metrics"
	"github.com/keithlinneman/sitebuilder/internal/opshttp"
	"github.com/keithlinneman/sitebuilder/internal/otelx"
	"github.com/keithlinneman/sitebuilder/internal/prof"
	"github.com/keithlinneman/sitebuilder/internal/ratelimit"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
	"github.com/keithlinneman/sitebuilder/internal/sitepage"
	"github.com/keithlinneman/sitebuilder/internal/statichttp"
	v "github.com/keithlinneman/sitebuilder/internal/version"
	"github.com/keithlinneman/sitebuilder/internal/webassets"
	"github.com/keithlinneman/sitebuilder/internal/xerrors"
)

// admin routes get a tighter budget than page views
const (
	adminRatePerSecond  = 2
	adminRateBurst      = 20
	storageProbeTimeout = 2 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			vi.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildID, vi.BuildDate, vi.GoVersion, vi.Dirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Validate already checked this
	preferred, _ := siteconfig.ParseVariant(conf.PreferredVariant, siteconfig.Published)

	lg, err := log.New(log.Options{
		App:        v.AppName,
		Version:    vi.Version,
		SiteID:     conf.SiteID,
		Level:      conf.LogLevel,
		StackLevel: conf.StackLevel,
		JSON:       conf.LogJSON,
		ErrorLinks: conf.ErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildID,
		"go_version", vi.GoVersion,
		"site_id", conf.SiteID,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"mock_mode", conf.MockMode,
		"mock_dir", conf.MockDir,
		"s3_bucket", conf.S3Bucket,
		"s3_region", conf.S3Region,
		"s3_endpoint", conf.S3Endpoint,
		"cdn_base", conf.CDNBase,
		"preferred_variant", preferred.String(),
		"admin_query_param", conf.AdminQueryParam,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"trace_sample", conf.TraceSample,
	)
	if conf.AdminQueryParam {
		L.Warn(ctx, "admin query parameter gate enabled, ?admin=1 grants admin access")
	}

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", &vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		SiteID:        conf.SiteID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.ShortCommit(),
		},
		OnState: m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// collector runs on localhost, so no TLS
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
		SiteID:    conf.SiteID,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	awsCfg, err := loadAWS(ctx, &conf)
	if err != nil {
		L.Error(ctx, err, "failed to load AWS config")
		os.Exit(1)
	}

	token, err := adminToken(ctx, &conf, awsCfg)
	if err != nil {
		L.Error(ctx, err, "failed to load admin token", "ssm_param", conf.AdminTokenSSMParam)
		os.Exit(1)
	}

	store, err := openStore(ctx, &conf, awsCfg)
	if err != nil {
		L.Error(ctx, err, "failed to open object storage", "bucket", conf.S3Bucket)
		os.Exit(1)
	}
	store = blobstore.WithObserver(store, m)
	urls := urlBuilder(&conf)

	configs, err := configstore.New(configstore.Options{Logger: L, Store: store, SiteID: conf.SiteID})
	if err != nil {
		L.Error(ctx, err, "failed to create config store")
		os.Exit(1)
	}

	fx, err := fixtures.New(fixtures.Options{
		Logger:   L,
		Bundled:  webassets.FixturesFS(),
		OnReload: m.FixturesReloaded,
	})
	if err != nil {
		L.Error(ctx, err, "failed to load bundled fixtures")
		os.Exit(1)
	}
	if conf.MockDir != "" {
		if err := fx.Watch(ctx, conf.MockDir); err != nil {
			// bundled fixtures still serve
			L.Error(ctx, err, "fixtures dir watch failed", "dir", conf.MockDir)
		}
	}

	guard := adminauth.New(adminauth.Options{
		Token:           token,
		AllowQueryParam: conf.AdminQueryParam,
		Logger:          L,
		Metrics:         m,
	})

	publicLimiter := newLimiter(ctx, L, m, "public", conf.RateLimitPerSecond, conf.RateLimitBurst)
	adminLimiter := newLimiter(ctx, L, m, "admin", adminRatePerSecond, adminRateBurst)

	configAPI, err := configapi.New(configapi.Options{
		Logger:       L,
		Store:        configs,
		Guard:        guard,
		Fixtures:     fx,
		Metrics:      m,
		SiteID:       conf.SiteID,
		MockMode:     conf.MockMode,
		AdminLimiter: adminLimiter.Middleware,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create config api")
		os.Exit(1)
	}

	mediaAPI, err := mediaapi.New(mediaapi.Options{
		Logger:       L,
		Store:        store,
		URLs:         urls,
		Guard:        guard,
		Bucket:       conf.S3Bucket,
		Expiry:       conf.PresignExpiry,
		AdminLimiter: adminLimiter.Middleware,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create media api")
		os.Exit(1)
	}

	static, err := statichttp.New(&statichttp.Options{
		Logger:     L,
		Assets:     webassets.StaticFS(),
		FallbackFS: webassets.FallbackFS(),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create static handler")
		os.Exit(1)
	}

	page, err := sitepage.New(sitepage.Options{
		Logger:   L,
		Store:    configs,
		Fixtures: fx,
		Guard:    guard,
		Metrics:  m,
		Gallery: func(ctx context.Context, prefix string) ([]siteconfig.GalleryItem, error) {
			return mediaAPI.Gallery(ctx, prefix, mediaapi.DefaultLimit, false)
		},
		SiteID:      conf.SiteID,
		Preferred:   preferred,
		Maintenance: static.ServeMaintenance,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create page handler")
		os.Exit(1)
	}

	// drain flips readiness before listeners close
	var gate health.ShutdownGate
	readiness := []health.Check{
		{Name: "shutdown", Probe: gate.Probe()},
		{Name: "fixtures", Probe: health.CheckFunc(func(context.Context) error {
			if body, _ := fx.Lookup(conf.SiteID); len(body) == 0 {
				return xerrors.New("no fixture for site")
			}
			return nil
		})},
	}
	if !conf.MockMode {
		readiness = append(readiness, health.Check{
			Name:  "storage",
			Probe: health.WithTimeout(health.Storage(store), storageProbeTimeout),
		})
	}

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		SiteID:       conf.SiteID,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  publicLimiter.Middleware,
		ClientIPOpts: clientIPOptions(&conf),
		CSP:          cspOptions(&conf, urls),
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		APIRoutes: func(r chi.Router) {
			configAPI.Routes(r)
			mediaAPI.Routes(r)
			page.Routes(r)
		},
		Page:     page,
		Static:   static,
		NotFound: http.HandlerFunc(static.ServeNotFound),
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// metrics, health and pprof stay off the public listener; the handler
	// refuses public peers in case the security group is ever opened up
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Set("draining")
	L.Info(bg, "readiness failing, waiting for load balancer to drain", "drain_delay", conf.DrainDelay.String())

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.DrainDelay):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

func newLimiter(ctx context.Context, L log.Logger, m *metrics.ServerMetrics, name string, rps float64, burst int) *ratelimit.IPLimiter {
	return ratelimit.New(ctx, name,
		ratelimit.WithRate(rps, burst),
		ratelimit.WithOnDenied(func(string, string) { m.IncRateLimitDenied() }),
		// once per tracked visitor, not per request
		ratelimit.WithOnFirstDenied(func(name, ip string) {
			L.Warn(ctx, "rate limit triggered", "limiter", name, "ip", ip)
		}),
	)
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return xerrors.New("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return xerrors.Wrap(err, "systemd notify dial")
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return xerrors.Wrap(err, "systemd notify write")
	}
	return nil
}
