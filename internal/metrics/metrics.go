package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/sitebuilder/internal/version"
)

type ServerMetrics struct {
	reg                  *prometheus.Registry
	handler              http.Handler
	inflight             prometheus.Gauge
	reqTotal             *prometheus.CounterVec
	reqDur               *prometheus.HistogramVec
	respBytes            *prometheus.HistogramVec
	httpPanicTotal       prometheus.Counter
	buildInfo            *prometheus.GaugeVec
	ratelimitDeniedTotal prometheus.Counter

	errorsTotal *prometheus.CounterVec

	profilingActive prometheus.Gauge

	// storage and config workflow
	storageOpsTotal     *prometheus.CounterVec
	storageOpDuration   *prometheus.HistogramVec
	configPublishTotal  *prometheus.CounterVec
	adminDeniedTotal    *prometheus.CounterVec
	pageConfigSource    *prometheus.CounterVec
	fixturesReloadTotal prometheus.Counter
	fixturesLoaded      prometheus.Gauge
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 52428800},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		storageOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Object storage operations by op and result",
		}, []string{"op", "result"}),
		storageOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Object storage operation latency by op",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
		configPublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "config_publishes_total",
			Help: "Config publish attempts by result",
		}, []string{"result"}),
		adminDeniedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admin_requests_denied_total",
			Help: "Admin-gated requests rejected by route",
		}, []string{"route"}),
		pageConfigSource: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "page_config_source_total",
			Help: "Page renders by the config source that served them",
		}, []string{"source"}),
		fixturesReloadTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fixtures_reloads_total",
			Help: "Total reloads of the mock fixtures directory",
		}),
		fixturesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fixtures_override_count",
			Help: "Number of override fixtures loaded from the fixtures directory",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.ratelimitDeniedTotal,
		m.errorsTotal,
		m.profilingActive,
		m.storageOpsTotal,
		m.storageOpDuration,
		m.configPublishTotal,
		m.adminDeniedTotal,
		m.pageConfigSource,
		m.fixturesReloadTotal,
		m.fixturesLoaded,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi *version.Info) {
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildID,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   strconv.FormatBool(vi.Dirty),
	}).Set(1)
}

func (m *ServerMetrics) IncRateLimitDenied() {
	m.ratelimitDeniedTotal.Inc()
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// ObserveStorageOp implements blobstore.Observer.
func (m *ServerMetrics) ObserveStorageOp(op, result string, seconds float64) {
	m.storageOpsTotal.WithLabelValues(op, result).Inc()
	m.storageOpDuration.WithLabelValues(op).Observe(seconds)
}

func (m *ServerMetrics) IncConfigPublish(result string) {
	m.configPublishTotal.WithLabelValues(result).Inc()
}

// IncAdminDenied implements adminauth.DenyMetrics. route should be a route
// pattern or a fixed path, never raw user input.
func (m *ServerMetrics) IncAdminDenied(route string) {
	m.adminDeniedTotal.WithLabelValues(route).Inc()
}

func (m *ServerMetrics) IncPageConfigSource(source string) {
	m.pageConfigSource.WithLabelValues(source).Inc()
}

func (m *ServerMetrics) FixturesReloaded(count int) {
	m.fixturesReloadTotal.Inc()
	m.fixturesLoaded.Set(float64(count))
}
