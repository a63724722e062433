// Package middleware provides HTTP middleware for authentication and rate limiting.
//
// # Overview
//
// This package implements request processing middleware including session
// authentication and fixed-window rate limiting with a Redis backend.
//
// # Middleware Components
//
// AuthMiddleware: Bearer session authentication
//
//	authMW := middleware.NewAuthMiddleware(sessions, users, false)
//	router.Use(authMW.Handler)
//	// Extracts the Bearer token, resolves the session, adds AuthContext to the request
//
// RequireAuth / RequireGlobalAdmin: access guards for resolved callers
//
//	router.Use(middleware.RequireAuth)
//
// RateLimitMiddleware: Redis-backed rate limiting with local fallback
//
//	limiter := middleware.NewRedisRateLimiter(redisClient, cfg, "ratelimit")
//	rl := middleware.NewRateLimitMiddleware(cfg, limiter, metrics, logger)
//	router.Use(rl.Handler)
//
// # Rate Limiting
//
// Limits apply per authenticated user, or per client IP for anonymous
// requests. When Redis is unreachable the middleware falls back to a
// per-instance window rather than dropping limits entirely.
//
// # Related Packages
//
//   - pkg/auth: Session resolution and user lookup
//   - pkg/rbac: Permission checking
//   - pkg/observability: Rejection and fallback metrics
package middleware
