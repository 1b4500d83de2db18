package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/respond"
	"github.com/nextgendevs/ng-backend/pkg/clientip"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerXXSSProtection          = "X-XSS-Protection"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerXXSSProtection, "1; mode=block")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost.
// allowedHost is the bare hostname without scheme or port; empty disables the check.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), allowedHost) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterTTL             = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPLimiter keeps an in-memory token bucket per client IP. Paths, when set,
// restricts it to those exact request paths.
type IPLimiter struct {
	name       string
	limit      rate.Limit
	burst      int
	paths      map[string]bool
	trustProxy bool
	message    string
	metrics    *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func NewIPLimiter(name string, limit rate.Limit, burst int, trustProxy bool, m *metrics.Metrics, message string, paths ...string) *IPLimiter {
	l := &IPLimiter{
		name:       name,
		limit:      limit,
		burst:      burst,
		trustProxy: trustProxy,
		message:    message,
		metrics:    m,
		entries:    make(map[string]*limiterEntry),
	}
	if len(paths) > 0 {
		l.paths = make(map[string]bool, len(paths))
		for _, p := range paths {
			l.paths[p] = true
		}
	}
	return l
}

func (l *IPLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = time.Now()
	return e.limiter
}

// Sweep drops buckets idle for longer than ttl
func (l *IPLimiter) Sweep(ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	for ip, e := range l.entries {
		if now.Sub(e.lastUse) > ttl {
			delete(l.entries, ip)
		}
	}
}

// Run sweeps idle buckets until ctx is cancelled
func (l *IPLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(limiterTTL)
		}
	}
}

func (l *IPLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.paths != nil && !l.paths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if !l.get(clientip.RealClientIP(r, l.trustProxy)).Allow() {
			if l.metrics != nil {
				l.metrics.RateLimitedTotal.WithLabelValues(l.name).Inc()
			}
			respond.TooManyRequests(w, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ProductionSecurity returns the production chain: security headers, host
// check, a global per-IP limit of 1 req/s (burst 10) and a stricter limit of
// one attempt per 5s (burst 2) on login and signup. The limiters' cleanup
// loops stop with ctx.
func ProductionSecurity(ctx context.Context, allowedHost string, trustProxy bool, m *metrics.Metrics) []func(http.Handler) http.Handler {
	global := NewIPLimiter("ip", rate.Limit(1), 10, trustProxy, m, "Too many requests. Please slow down.")
	login := NewIPLimiter("login", rate.Every(5*time.Second), 2, trustProxy, m,
		"Too many login attempts. Please try again later.",
		"/api/auth/login", "/api/auth/signup")
	go global.Run(ctx)
	go login.Run(ctx)

	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		global.Handler,
		login.Handler,
	}
}
