package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sahwira-ai/sahwira/internal/middleware"
	"github.com/sahwira-ai/sahwira/pkg/logger"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	JWTSecret      string
	AdminEmail     string
	AllowedOrigins []string

	RateLimitRequests   int
	RateLimitWindow     time.Duration
	AIRateLimitRequests int
	AIRateLimitWindow   time.Duration

	Health        *HealthHandler
	Users         *UserHandler
	Tasks         *TaskHandler
	Conversations *ConversationHandler
	Stats         *StatsHandler
	AI            *AIHandler
	Stream        *StreamHandler

	Logger *logger.Logger
}

// NewRouter builds the chi router with global middleware and all routes.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Unauthenticated routes share one per-IP limiter.
	public := middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow)

	r.Group(func(r chi.Router) {
		r.Use(public)
		r.Get("/health", cfg.Health.Health)
		r.Get("/ready", cfg.Health.Ready)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.With(public).Get("/health", cfg.Health.Health)
		r.With(public).Get("/ready", cfg.Health.Ready)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.UserRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

			r.Get("/me", cfg.Users.Me)
			r.Put("/me", cfg.Users.Sync)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", cfg.Tasks.List)
				r.Post("/", cfg.Tasks.Create)
				r.Patch("/{id}", cfg.Tasks.Update)

				r.Group(func(r chi.Router) {
					r.Use(middleware.AIRateLimit(cfg.AIRateLimitRequests, cfg.AIRateLimitWindow))
					r.Post("/extract", cfg.Tasks.Extract)
					r.Post("/extract/audio", cfg.Tasks.ExtractAudio)
				})
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", cfg.Conversations.List)
				r.Post("/", cfg.Conversations.Create)
				r.Put("/{id}", cfg.Conversations.Replace)
				r.Patch("/{id}", cfg.Conversations.Rename)
				r.Delete("/{id}", cfg.Conversations.Delete)
			})

			r.Get("/leaderboard", cfg.Stats.Leaderboard)
			r.Get("/users/me/stats", cfg.Stats.UserStats)
			r.With(middleware.RequireAdmin(cfg.AdminEmail)).Get("/admin/stats", cfg.Stats.AdminStats)

			r.Route("/ai", func(r chi.Router) {
				r.Use(middleware.AIRateLimit(cfg.AIRateLimitRequests, cfg.AIRateLimitWindow))
				r.Post("/transcribe", cfg.AI.Transcribe)
				r.Post("/chat", cfg.AI.Chat)
				r.Post("/chat/stream", cfg.Stream.ChatStream)
				r.Post("/tts", cfg.AI.Speak)
			})
		})
	})

	return r
}
