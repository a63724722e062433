package middleware

import (
	"net/http"
	"strings"

	"github.com/tallyhq/tally/pkg/auth"
	"github.com/tallyhq/tally/pkg/contextkeys"
	"github.com/tallyhq/tally/pkg/httputil"
)

// AuthMiddleware resolves the caller into an auth context
type AuthMiddleware struct {
	sessions auth.SessionStore
	users    auth.Provider
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(sessions auth.SessionStore, users auth.Provider, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		sessions: sessions,
		users:    users,
		optional: optional,
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract token from Authorization header
		// Format: "Bearer <token>"
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		userID, err := m.sessions.Resolve(r.Context(), parts[1])
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired session")
			return
		}

		user, err := m.users.UserByID(r.Context(), userID)
		if err != nil {
			httputil.WriteUnauthorized(w, "invalid or expired session")
			return
		}
		if !user.IsActive {
			httputil.WriteUnauthorized(w, "account disabled")
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), &auth.AuthContext{User: user})
		ctx = contextkeys.WithUserID(ctx, user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	ctx := r.Context().Value(contextkeys.AuthKey)
	if ctx == nil {
		return nil
	}
	authCtx, ok := ctx.(*auth.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// RequireAuth rejects requests that carry no resolved caller
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil || !authCtx.IsAuthenticated() {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGlobalAdmin rejects callers without the global administrator role
func RequireGlobalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil || !authCtx.IsAuthenticated() {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		if authCtx.User.GlobalRole != auth.GlobalRoleAdmin {
			httputil.WriteForbidden(w, "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
