package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/contextkeys"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(target, userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	authCtx := &auth.AuthContext{User: &auth.User{ID: userID, IsActive: true}}
	return req.WithContext(contextkeys.WithAuth(req.Context(), authCtx))
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	_, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 3, WindowDuration: time.Minute}
	limiter := NewRedisRateLimiter(client, cfg, "test")

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(ctx, "user:u-1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, remaining, err := limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)

	// Separate keys have separate windows.
	allowed, _, err = limiter.Allow(ctx, "user:u-2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRedisRateLimiter_WindowReset(t *testing.T) {
	mr, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	limiter := NewRedisRateLimiter(client, cfg, "test")

	ctx := context.Background()
	allowed, _, err := limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	mr.FastForward(2 * time.Minute)

	allowed, _, err = limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)
	assert.True(t, allowed, "window should reset after expiry")
}

func TestRedisRateLimiter_Remaining(t *testing.T) {
	_, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 5, WindowDuration: time.Minute}
	limiter := NewRedisRateLimiter(client, cfg, "test")

	ctx := context.Background()
	remaining, err := limiter.Remaining(ctx, "user:u-1")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	_, _, err = limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)

	remaining, err = limiter.Remaining(ctx, "user:u-1")
	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
}

func TestRedisRateLimiter_Reset(t *testing.T) {
	_, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute}
	limiter := NewRedisRateLimiter(client, cfg, "test")

	ctx := context.Background()
	_, _, err := limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)

	require.NoError(t, limiter.Reset(ctx, "user:u-1"))

	allowed, _, err := limiter.Allow(ctx, "user:u-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestLocalRateLimiter(t *testing.T) {
	cfg := &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute, FallbackSize: 100}
	limiter := NewLocalRateLimiter(cfg)

	assert.True(t, limiter.Allow("ip:1.2.3.4"))
	assert.True(t, limiter.Allow("ip:1.2.3.4"))
	assert.False(t, limiter.Allow("ip:1.2.3.4"))
	assert.Equal(t, 0, limiter.Remaining("ip:1.2.3.4"))

	assert.True(t, limiter.Allow("ip:5.6.7.8"), "other keys keep their own budget")
	assert.Equal(t, 2, limiter.Remaining("ip:9.9.9.9"))
}

func TestRateLimitMiddleware_PerUser(t *testing.T) {
	_, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute, FallbackSize: 100}
	limiter := NewRedisRateLimiter(client, cfg, "ratelimit")
	mw := NewRateLimitMiddleware(cfg, limiter, nil, nil)

	handler := mw.Handler(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("/groups", "u-1"))
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/groups", "u-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// A different user stays under their own limit.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/groups", "u-2"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_AnonymousByIP(t *testing.T) {
	_, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, FallbackSize: 100}
	limiter := NewRedisRateLimiter(client, cfg, "ratelimit")
	mw := NewRateLimitMiddleware(cfg, limiter, nil, nil)

	handler := mw.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/groups", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/groups", nil)
	other.Header.Set("X-Forwarded-For", "10.0.0.2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_FallsBackWhenRedisDown(t *testing.T) {
	mr, client := newTestRedis(t)
	cfg := &RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute, FallbackSize: 100}
	limiter := NewRedisRateLimiter(client, cfg, "ratelimit")
	mw := NewRateLimitMiddleware(cfg, limiter, nil, nil)

	mr.Close()

	handler := mw.Handler(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/groups", "u-1"))
	assert.Equal(t, http.StatusOK, rec.Code, "first request fits the local window")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("/groups", "u-1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "local window still enforces the limit")
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	assert.Equal(t, "192.168.1.1:1234", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.5")
	assert.Equal(t, "10.0.0.5", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	assert.Equal(t, "203.0.113.7", getClientIP(req))
}
