package router

import (
	"net/http"

	"github.com/amerfu/llm-fallback/internal/config"
	"github.com/amerfu/llm-fallback/internal/handlers"
	"github.com/amerfu/llm-fallback/internal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies are the services the main router serves.
type Dependencies struct {
	Fallback *handlers.FallbackHandler
	// Store backs the readiness probe.
	Store handlers.Pinger
}

func NewRouter(cfg *config.Config, logger *zap.Logger, deps *Dependencies) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.MetricsMiddleware(logger))

	// Origin allow-list runs before CORS so a foreign preflight is refused
	r.Use(middleware.OriginAllowList(cfg.CORS.AllowedOrigins, logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// Health check
	r.Get("/health", handlers.Health)
	r.Get("/ready", handlers.Ready(deps.Store))

	// Metrics move to their own listener when a port is configured
	if cfg.Server.MetricsPort == 0 {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Everything else is the proxy surface: GET status, POST query
	r.Handle("/*", deps.Fallback)
	r.Handle("/", deps.Fallback)

	return r
}
