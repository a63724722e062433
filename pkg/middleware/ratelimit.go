package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tallyhq/tally/pkg/observability"
)

// RateLimitConfig defines fixed-window rate limiting settings.
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// FallbackSize bounds the number of keys tracked by the local fallback
	// limiter when Redis is unreachable
	FallbackSize int
}

// DefaultRateLimitConfig returns default rate limit settings
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		FallbackSize:      10000,
	}
}

type localWindow struct {
	mu    sync.Mutex
	count int
}

// LocalRateLimiter is an in-process fixed-window limiter. It backs the
// Redis limiter when Redis is unreachable, so limits keep applying per
// instance instead of disappearing entirely.
type LocalRateLimiter struct {
	config  *RateLimitConfig
	mu      sync.Mutex
	windows *expirable.LRU[string, *localWindow]
}

// NewLocalRateLimiter creates a local fallback limiter. Window state is held
// in an expiring LRU so idle keys age out on their own.
func NewLocalRateLimiter(config *RateLimitConfig) *LocalRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	size := config.FallbackSize
	if size <= 0 {
		size = DefaultRateLimitConfig().FallbackSize
	}
	return &LocalRateLimiter{
		config:  config,
		windows: expirable.NewLRU[string, *localWindow](size, nil, config.WindowDuration),
	}
}

// Allow reports whether the key has budget left in the current window.
func (rl *LocalRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	w, ok := rl.windows.Get(key)
	if !ok {
		w = &localWindow{}
		rl.windows.Add(key, w)
	}
	rl.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count >= rl.config.RequestsPerWindow {
		return false
	}
	w.count++
	return true
}

// Remaining returns the remaining budget for a key in the current window.
func (rl *LocalRateLimiter) Remaining(key string) int {
	w, ok := rl.windows.Get(key)
	if !ok {
		return rl.config.RequestsPerWindow
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	remaining := rl.config.RequestsPerWindow - w.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// RateLimitMiddleware applies a shared Redis fixed window per caller, with a
// per-instance local window as fallback when Redis is down.
type RateLimitMiddleware struct {
	config   *RateLimitConfig
	redis    *RedisRateLimiter
	fallback *LocalRateLimiter
	metrics  *observability.Metrics
	logger   *observability.Logger
}

// NewRateLimitMiddleware creates a rate limit middleware. redis may be nil,
// in which case only the local limiter applies.
func NewRateLimitMiddleware(config *RateLimitConfig, redis *RedisRateLimiter, metrics *observability.Metrics, logger *observability.Logger) *RateLimitMiddleware {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimitMiddleware{
		config:   config,
		redis:    redis,
		fallback: NewLocalRateLimiter(config),
		metrics:  metrics,
		logger:   logger,
	}
}

// Handler wraps an HTTP handler with rate limiting. Authenticated callers are
// limited per user, anonymous callers per client IP.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var key string
		if authCtx := GetAuthContext(r); authCtx != nil && authCtx.User != nil {
			key = "user:" + authCtx.User.ID
		} else {
			key = "ip:" + getClientIP(r)
		}

		allowed, remaining, backend := m.check(r, key)
		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitRejectionsTotal.WithLabelValues(backend).Inc()
			}
			m.rateLimitExceeded(w)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.config.RequestsPerWindow))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) check(r *http.Request, key string) (allowed bool, remaining int, backend string) {
	if m.redis != nil {
		allowed, remaining, err := m.redis.Allow(r.Context(), key)
		if err == nil {
			return allowed, remaining, "redis"
		}
		if m.logger != nil {
			m.logger.WithError(err).Warn("rate limiter falling back to local window")
		}
		if m.metrics != nil {
			m.metrics.RateLimitFallbackTotal.Inc()
		}
	}
	return m.fallback.Allow(key), m.fallback.Remaining(key), "fallback"
}

func (m *RateLimitMiddleware) rateLimitExceeded(w http.ResponseWriter) {
	retryAfter := m.config.WindowDuration.Seconds()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%.0f", retryAfter))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.config.RequestsPerWindow))
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(m.config.WindowDuration).Unix()))
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"rate limit exceeded","retry_after":` + fmt.Sprintf("%.0f", retryAfter) + `}`))
}

func getClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
