package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/keithlinneman/sitebuilder/internal/log"
	"github.com/keithlinneman/sitebuilder/internal/siteconfig"
)

// EnvPrefix is prepended to upper-cased flag names when reading the environment.
const EnvPrefix = "SITEBUILDER_"

type App struct {
	LogJSON         bool
	LogLevel        string
	HTTPPort        int
	AdminPort       int
	EnablePprof     bool
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64
	StackLevel      string
	ErrorLinks      int

	SiteID           string
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
	S3PathStyle      bool
	CDNBase          string
	MockMode         bool
	MockDir          string
	PreferredVariant string

	AdminToken         string
	AdminTokenSSMParam string
	AdminQueryParam    bool
	PresignExpiry      time.Duration

	RateLimitPerSecond float64
	RateLimitBurst     int
	TrustedProxyHops   int

	DrainDelay time.Duration
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "ops listen TCP port for metrics/health/pprof (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on ops port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.IntVar(&c.ErrorLinks, "error-links", 5, "wrap sites listed per logged error (0 disables, max 64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StackLevel, "stack-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")

	fs.StringVar(&c.SiteID, "site-id", "default", "site identifier used to namespace storage keys and pick mock fixtures")
	fs.StringVar(&c.S3Bucket, "s3-bucket", "", "bucket holding site config and media")
	fs.StringVar(&c.S3Region, "s3-region", "us-east-2", "bucket region, used for public object URLs")
	fs.StringVar(&c.S3Endpoint, "s3-endpoint", "", "custom S3-compatible endpoint URL (minio, r2)")
	fs.BoolVar(&c.S3PathStyle, "s3-path-style", false, "use path-style bucket addressing")
	fs.StringVar(&c.CDNBase, "cdn-base", "", "public base URL for media objects (overrides bucket host)")
	fs.BoolVar(&c.MockMode, "mock-mode", false, "serve bundled mock config and keep storage in memory")
	fs.StringVar(&c.MockDir, "mock-dir", "", "directory of <site-id>.json fixtures overriding the bundled ones, reloaded on change")
	fs.StringVar(&c.PreferredVariant, "preferred-variant", "published", "config variant the page renders first (draft|published)")

	fs.StringVar(&c.AdminToken, "admin-token", "", "sentinel value required in the X-Admin-Token header")
	fs.StringVar(&c.AdminTokenSSMParam, "admin-token-ssm-param", "", "SSM parameter holding the admin token (overrides -admin-token)")
	fs.BoolVar(&c.AdminQueryParam, "admin-query-param", false, "also accept ?admin=1 as the admin gate (development only)")
	fs.DurationVar(&c.PresignExpiry, "presign-expiry", 300*time.Second, "default expiry for presigned upload URLs (1s..1h)")

	fs.Float64Var(&c.RateLimitPerSecond, "rate-limit-rps", 10, "per-ip request refill rate")
	fs.IntVar(&c.RateLimitBurst, "rate-limit-burst", 30, "per-ip request burst")
	fs.IntVar(&c.TrustedProxyHops, "trusted-proxy-hops", 0, "number of trusted reverse proxies in X-Forwarded-For")

	fs.DurationVar(&c.DrainDelay, "drain-delay", 60*time.Second, "time between failing readiness and closing listeners on shutdown")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s", f.Name, f.Value.String(), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

var siteIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,62}$`)

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StackLevel != "" {
		if _, err := log.ParseLevel(c.StackLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACK_LEVEL %q: %w", c.StackLevel, err))
		}
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.ErrorLinks < 0 || c.ErrorLinks > 64 {
		errs = append(errs, fmt.Errorf("ERROR_LINKS must be 0..64 (got %d)", c.ErrorLinks))
	}

	if !siteIDPattern.MatchString(c.SiteID) {
		errs = append(errs, fmt.Errorf("SITE_ID %q must match %s", c.SiteID, siteIDPattern.String()))
	}
	if _, err := siteconfig.ParseVariant(c.PreferredVariant, siteconfig.Published); err != nil {
		errs = append(errs, fmt.Errorf("invalid PREFERRED_VARIANT: %w", err))
	}
	if !c.MockMode && c.S3Bucket == "" {
		errs = append(errs, fmt.Errorf("S3_BUCKET is required unless MOCK_MODE=true"))
	}
	if c.S3Endpoint != "" {
		if u, err := url.Parse(c.S3Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("S3_ENDPOINT must be a URL (got %q)", c.S3Endpoint))
		}
	}
	if c.CDNBase != "" {
		if u, err := url.Parse(c.CDNBase); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("CDN_BASE must be a URL (got %q)", c.CDNBase))
		}
	}

	if c.AdminToken == "" && c.AdminTokenSSMParam == "" && !c.AdminQueryParam {
		errs = append(errs, fmt.Errorf("one of ADMIN_TOKEN, ADMIN_TOKEN_SSM_PARAM or ADMIN_QUERY_PARAM is required"))
	}
	if c.PresignExpiry < time.Second || c.PresignExpiry > time.Hour {
		errs = append(errs, fmt.Errorf("PRESIGN_EXPIRY must be 1s..1h (got %s)", c.PresignExpiry))
	}

	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be > 0 and RATE_LIMIT_BURST >= 1"))
	}
	if c.TrustedProxyHops < 0 || c.TrustedProxyHops > 8 {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXY_HOPS must be 0..8 (got %d)", c.TrustedProxyHops))
	}
	if c.DrainDelay < 0 || c.DrainDelay > 5*time.Minute {
		errs = append(errs, fmt.Errorf("DRAIN_DELAY must be 0..5m (got %s)", c.DrainDelay))
	}

	return errors.Join(errs...)
}
