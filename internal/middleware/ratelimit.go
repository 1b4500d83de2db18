package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nextgendevs/ng-backend/internal/metrics"
	"github.com/nextgendevs/ng-backend/internal/respond"
	"github.com/nextgendevs/ng-backend/pkg/clientip"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter is a fixed-window request counter per client IP kept in Redis,
// so every server instance shares the same budget.
type RateLimiter struct {
	client     *redis.Client
	window     time.Duration
	limit      int
	trustProxy bool
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewRateLimiter(client *redis.Client, window time.Duration, limit int, trustProxy bool, m *metrics.Metrics, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		client:     client,
		window:     window,
		limit:      limit,
		trustProxy: trustProxy,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := rateLimitKeyPrefix + clientip.RealClientIP(r, l.trustProxy)

		count, err := l.client.Incr(ctx, key).Result()
		if err == nil && count == 1 {
			err = l.client.Expire(ctx, key, l.window).Err()
		}
		if err != nil {
			// Redis down: fail open
			l.logger.Warn("rate limiter unavailable", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		reset := l.window
		if ttl, err := l.client.PTTL(ctx, key).Result(); err == nil && ttl > 0 {
			reset = ttl
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-int(count), 0)))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(l.now().Add(reset).Unix(), 10))

		if count > int64(l.limit) {
			if l.metrics != nil {
				l.metrics.RateLimitedTotal.WithLabelValues("window").Inc()
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(reset.Round(time.Second).Seconds())))
			respond.TooManyRequests(w, "Too many requests, please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}
