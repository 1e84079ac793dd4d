// Package api provides the HTTP API of the BookClub server.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/bookclub-server/internal/ratelimit"
	"github.com/listenupapp/bookclub-server/internal/sse"
)

// Config holds HTTP surface settings.
type Config struct {
	Version     string
	CORSOrigins []string
	// UserRPS and UserBurst throttle each authenticated user.
	UserRPS   float64
	UserBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   *Services
	sseManager *sse.Manager
	router     *chi.Mux
	api        huma.API
	limiter    *ratelimit.KeyedRateLimiter
	logger     *slog.Logger
}

// NewServer creates the HTTP server with all routes configured.
func NewServer(cfg Config, services *Services, tokens TokenVerifier, sseManager *sse.Manager, logger *slog.Logger) *Server {
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.UserRPS <= 0 {
		cfg.UserRPS = 10
	}
	if cfg.UserBurst <= 0 {
		cfg.UserBurst = 20
	}

	s := &Server{
		services:   services,
		sseManager: sseManager,
		router:     chi.NewRouter(),
		limiter:    ratelimit.New(cfg.UserRPS, cfg.UserBurst),
		logger:     logger,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Resolve the acting user before any route runs. Anonymous requests
	// pass through.
	s.router.Use(authenticate(tokens, services.Users, logger))
	s.router.Use(rateLimit(s.limiter, logger))

	s.router.Handle("/metrics", promhttp.Handler())
	if sseManager != nil {
		s.router.Handle("/events", sse.NewHandler(sseManager, logger))
	}

	humaConfig := huma.DefaultConfig("BookClub API", cfg.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerBookRoutes()
	s.registerReviewRoutes()
	s.registerBookmarkRoutes()
	s.registerUserRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, e.g. for OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close releases the per-user rate limiter.
func (s *Server) Close() {
	s.limiter.Stop()
}

var bearer = []map[string][]string{{"bearer": {}}}
