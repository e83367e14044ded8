package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/comment-consultant/internal/middleware"
	"github.com/capitalize-ai/comment-consultant/pkg/logger"
)

// RouterConfig wires handlers and middleware settings into the API router.
type RouterConfig struct {
	Health *HealthHandler
	Chat   *ChatHandler
	Videos *VideoHandler
	Stream *StreamHandler

	JWTSecret       string
	RateLimit       int
	RateLimitWindow time.Duration
	ChatRateLimit   int
	CORSOrigins     []string
	Logger          *logger.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	// Health endpoints (no auth required)
	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateLimitWindow))

		r.With(middleware.UserRateLimit(cfg.ChatRateLimit, cfg.RateLimitWindow)).Post("/chat", cfg.Chat.Send)
		r.Get("/session", cfg.Chat.Session)
		r.Delete("/session", cfg.Chat.ClearSession)

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", cfg.Videos.List)

			r.Route("/{videoID}", func(r chi.Router) {
				r.Post("/comments", cfg.Videos.ImportComments)
				r.Get("/comments", cfg.Videos.Comments)
				r.Get("/search", cfg.Videos.Search)
				r.Get("/analysis", cfg.Videos.Latest)
				r.Post("/analyses", cfg.Videos.Analyze)
				r.Get("/analyses/stream", cfg.Stream.AnalyzeStream)
				r.With(middleware.RequireScope(middleware.ScopeAdmin)).Delete("/analyses", cfg.Videos.DeleteAnalyses)
			})
		})
	})

	return r
}
