package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	customMiddleware "github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/repository/redis"
	"github.com/calegray/codedock/internal/security"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestServiceAuth(t *testing.T) {
	tokens := security.NewServiceTokenManager([]byte("service-secret"))
	auth := customMiddleware.NewServiceAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/protected", okHandler)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Service-Token", tokens.Mint())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := security.NewServiceTokenManager([]byte("other-secret"))
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("X-Service-Token", other.Mint())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestSandboxAuth_ScopedToSession(t *testing.T) {
	tokens := security.NewSandboxTokenManager([]byte("sandbox-secret"), time.Hour)
	auth := customMiddleware.NewSandboxAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(customMiddleware.SessionContext)
		r.Use(auth.Authenticate)
		r.Post("/events", okHandler)
	})

	sessionID := uuid.New()
	otherSession := uuid.New()
	sandboxID := uuid.New()
	token, err := tokens.Mint(sessionID, sandboxID)
	require.NoError(t, err)

	t.Run("own session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID.String()+"/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("another session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+otherSession.String()+"/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("no bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID.String()+"/events", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRateLimit_FailsOpen(t *testing.T) {
	// A limiter whose Redis is unreachable must let traffic through.
	client := redis.WrapClient(goredis.NewClient(&goredis.Options{
		Addr: "127.0.0.1:1",
	}))
	limiter := redis.NewRateLimiter(client, 60, 10)
	limit := customMiddleware.NewRateLimitMiddleware(limiter)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(limit.Limit)
		r.Get("/sessions", okHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestSessionContext_InvalidID(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(customMiddleware.SessionContext)
		r.Get("/", okHandler)
	})

	req := httptest.NewRequest(http.MethodGet, "/sessions/not-a-uuid/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
