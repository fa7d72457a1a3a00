package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/sitebuilder/internal/httpjson"
	"github.com/keithlinneman/sitebuilder/internal/httpmw"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// first denial per visitor is reported once; reset on eviction
	reported bool
}

// IPLimiter holds one token bucket per client IP.
type IPLimiter struct {
	name string

	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time

	onFirstDenied func(name, ip string)
	onDenied      func(name, ip string)
}

type Option func(*IPLimiter)

// WithRate sets the refill rate and bucket size. WithRate(10, 50) allows
// a burst of 50 then 10 per second.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL controls how long an idle IP stays tracked.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithOnFirstDenied is called once per tracked visitor, for logging.
func WithOnFirstDenied(fn func(name, ip string)) Option {
	return func(l *IPLimiter) { l.onFirstDenied = fn }
}

// WithOnDenied is called on every rejected request, for counters.
func WithOnDenied(fn func(name, ip string)) Option {
	return func(l *IPLimiter) { l.onDenied = fn }
}

// New creates a limiter named for logs and metrics and starts eviction,
// which stops when ctx is done.
func New(ctx context.Context, name string, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		name:      name,
		visitors:  make(map[string]*visitor),
		perSecond: 10,
		burst:     30,
		ttl:       5 * time.Minute,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.evictLoop(ctx)
	return l
}

func (l *IPLimiter) Name() string { return l.name }

// Allow reports whether ip has budget left, creating its bucket on first sight.
func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = l.now()
	allowed := v.limiter.Allow()
	first := !allowed && !v.reported
	if first {
		v.reported = true
	}
	l.mu.Unlock()

	// hooks run unlocked
	if first && l.onFirstDenied != nil {
		l.onFirstDenied(l.name, ip)
	}
	if !allowed && l.onDenied != nil {
		l.onDenied(l.name, ip)
	}
	return allowed
}

// Len is the number of tracked visitors.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

func (l *IPLimiter) evictLoop(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

// retryAfter is the whole seconds until one token refills.
func (l *IPLimiter) retryAfter() int {
	if l.perSecond <= 0 {
		return 60
	}
	return max(1, int(math.Ceil(1/float64(l.perSecond))))
}

// Middleware rejects over-limit requests with 429. The client IP comes
// from httpmw.ClientIP, which must run earlier in the chain.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			httpjson.Error(r.Context(), w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
