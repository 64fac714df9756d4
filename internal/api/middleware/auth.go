package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/api/response"
	"github.com/calegray/codedock/internal/repository/redis"
	"github.com/calegray/codedock/internal/security"
)

type contextKey string

const (
	SessionIDKey contextKey = "sessionID"
	SandboxIDKey contextKey = "sandboxID"
)

// SessionContext extracts the session ID from the URL and adds it to
// the request context.
func SessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionIDStr := chi.URLParam(r, "sessionID")
		if sessionIDStr == "" {
			response.Error(w, http.StatusBadRequest, "missing session ID")
			return
		}

		sessionID, err := uuid.Parse(sessionIDStr)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "invalid session ID")
			return
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID gets the session ID from context
func GetSessionID(ctx context.Context) (uuid.UUID, bool) {
	sessionID, ok := ctx.Value(SessionIDKey).(uuid.UUID)
	return sessionID, ok
}

// GetSandboxID gets the authenticated sandbox ID from context
func GetSandboxID(ctx context.Context) (uuid.UUID, bool) {
	sandboxID, ok := ctx.Value(SandboxIDKey).(uuid.UUID)
	return sandboxID, ok
}

// ServiceAuthMiddleware authenticates calls from trusted internal
// services carrying a timestamp.signature token.
type ServiceAuthMiddleware struct {
	tokens *security.ServiceTokenManager
}

// NewServiceAuthMiddleware creates a new service auth middleware
func NewServiceAuthMiddleware(tokens *security.ServiceTokenManager) *ServiceAuthMiddleware {
	return &ServiceAuthMiddleware{tokens: tokens}
}

// Authenticate validates the service token. Every failure reads the
// same from outside; the reason is never disclosed.
func (m *ServiceAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Service-Token")
		if token == "" {
			response.Unauthorized(w, "unauthorized")
			return
		}
		if err := m.tokens.Verify(token); err != nil {
			response.Unauthorized(w, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SandboxAuthMiddleware authenticates calls from sandboxes carrying
// their per-instance bearer token. The token is scoped to one session;
// a sandbox can never act on another session's routes.
type SandboxAuthMiddleware struct {
	tokens *security.SandboxTokenManager
}

// NewSandboxAuthMiddleware creates a new sandbox auth middleware
func NewSandboxAuthMiddleware(tokens *security.SandboxTokenManager) *SandboxAuthMiddleware {
	return &SandboxAuthMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token against the session in the
// URL. Requires SessionContext to run first.
func (m *SandboxAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := GetSessionID(r.Context())
		if !ok {
			response.Unauthorized(w, "unauthorized")
			return
		}

		authHeader := r.Header.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Unauthorized(w, "unauthorized")
			return
		}

		claims, err := m.tokens.Verify(parts[1], sessionID)
		if err != nil {
			response.Unauthorized(w, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), SandboxIDKey, claims.SandboxID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RateLimitMiddleware handles rate limiting
type RateLimitMiddleware struct {
	rateLimiter *redis.RateLimiter
}

// NewRateLimitMiddleware creates a new rate limit middleware
func NewRateLimitMiddleware(rateLimiter *redis.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter}
}

// Limit applies rate limiting keyed by session when one is in scope,
// falling back to the client address.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if sessionID, ok := GetSessionID(r.Context()); ok {
			key = sessionID.String()
		}

		allowed, remaining, resetTime, err := m.rateLimiter.Allow(r.Context(), key)
		if err != nil {
			// A broken limiter must not take the API down with it.
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", resetTime.Format("2006-01-02T15:04:05Z"))

		if !allowed {
			response.Error(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}
