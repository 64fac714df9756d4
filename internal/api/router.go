package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/calegray/codedock/internal/actor"
	"github.com/calegray/codedock/internal/api/handler"
	customMiddleware "github.com/calegray/codedock/internal/api/middleware"
	"github.com/calegray/codedock/internal/config"
	"github.com/calegray/codedock/internal/pipeline"
	"github.com/calegray/codedock/internal/provision"
	"github.com/calegray/codedock/internal/repository/postgres"
	"github.com/calegray/codedock/internal/repository/redis"
	"github.com/calegray/codedock/internal/scm"
	"github.com/calegray/codedock/internal/security"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	db *postgres.DB,
	redisClient *redis.Client,
	provisioner provision.Provisioner,
	scmClient scm.Client,
) (http.Handler, error) {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Service-Token", "X-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize security components
	master := []byte(cfg.Auth.MasterSecret)
	encryptor, err := security.NewEncryptorFromMaster(master)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}
	sandboxKey, err := security.DeriveKey(master, "sandbox-token", 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive sandbox token key: %w", err)
	}
	serviceTokens := security.NewServiceTokenManager([]byte(cfg.Auth.ServiceSecret))
	sandboxTokens := security.NewSandboxTokenManager(sandboxKey, cfg.Auth.SandboxTokenTTL)

	// Initialize store, caches and the actor service
	store := postgres.NewStore(db)
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.RateLimit.RequestsPerMinute,
		cfg.RateLimit.Burst,
	)
	liveText := redis.NewLiveTextCache(redisClient)

	actors := actor.NewService(
		store,
		provisioner,
		scmClient,
		pipeline.NewHub(),
		encryptor,
		sandboxTokens,
		liveText,
		actor.Options{
			InactivityWindow: cfg.Sandbox.InactivityWindow,
			SnapshotOnStop:   cfg.Sandbox.SnapshotOnStop,
			DefaultPageSize:  cfg.Pagination.DefaultPageSize,
			MaxSessionPage:   cfg.Pagination.MaxSessionPage,
			MaxEventPage:     cfg.Pagination.MaxEventPage,
			MaxMessagePage:   cfg.Pagination.MaxMessagePage,
		},
	)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(actors)
	promptHandler := handler.NewPromptHandler(actors)
	eventHandler := handler.NewEventHandler(actors)
	participantHandler := handler.NewParticipantHandler(actors)
	artifactHandler := handler.NewArtifactHandler(actors)

	// Auth middleware
	serviceAuth := customMiddleware.NewServiceAuthMiddleware(serviceTokens)
	sandboxAuth := customMiddleware.NewSandboxAuthMiddleware(sandboxTokens)
	rateLimit := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	// Frontend-facing surface, service-token domain
	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		r.Group(func(r chi.Router) {
			r.Use(serviceAuth.Authenticate)

			r.Route("/sessions", func(r chi.Router) {
				r.With(middleware.Timeout(cfg.Server.MiddlewareTimeout)).Get("/", sessionHandler.List)
				r.With(middleware.Timeout(cfg.Server.MiddlewareTimeout)).Post("/", sessionHandler.Create)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Use(customMiddleware.SessionContext)
					r.Use(rateLimit.Limit)

					// The event stream stays open past any request
					// timeout, so it mounts outside the timed group.
					r.Get("/events/stream", eventHandler.Stream)

					r.Group(func(r chi.Router) {
						r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

						r.Get("/", sessionHandler.Get)
						r.Delete("/", sessionHandler.Delete)
						r.Post("/archive", sessionHandler.Archive)
						r.Post("/unarchive", sessionHandler.Unarchive)
						r.Post("/snapshot", sessionHandler.Snapshot)

						r.Post("/prompt", promptHandler.Prompt)
						r.Post("/stop", promptHandler.Stop)
						r.Get("/messages", promptHandler.ListMessages)
						r.Get("/messages/{messageID}/text", promptHandler.MessageText)

						r.Get("/events", eventHandler.List)

						r.Route("/participants", func(r chi.Router) {
							r.Get("/", participantHandler.List)
							r.Post("/", participantHandler.Add)
							r.Patch("/{participantID}", participantHandler.Update)
							r.Post("/{participantID}/token", participantHandler.RotateToken)
						})

						r.Get("/artifacts", artifactHandler.List)
						r.Post("/artifacts", artifactHandler.Post)
						r.Post("/pull-requests", artifactHandler.CreatePullRequest)
					})
				})
			})
		})
	})

	// Sandbox-facing surface, bearer-token domain. A sandbox's token
	// only opens the session it belongs to.
	r.Route("/internal/v1/sessions/{sessionID}", func(r chi.Router) {
		r.Use(customMiddleware.SessionContext)
		r.Use(sandboxAuth.Authenticate)
		r.Use(middleware.Timeout(cfg.Server.MiddlewareTimeout))

		r.Post("/events", eventHandler.Record)
		r.Post("/heartbeat", eventHandler.Heartbeat)
		r.Post("/artifacts", artifactHandler.Post)
		r.Get("/participants", participantHandler.List)
		r.Post("/participants", participantHandler.Add)
	})

	return r, nil
}
