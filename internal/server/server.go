// Package server provides the HTTP server and routing for the dashboard service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	cachehandlers "github.com/aristath/dashboard/internal/clientdata/handlers"
	"github.com/aristath/dashboard/internal/di"
	markethourshandlers "github.com/aristath/dashboard/internal/modules/market_hours/handlers"
	observerhandlers "github.com/aristath/dashboard/internal/modules/observers/handlers"
	refreshhandlers "github.com/aristath/dashboard/internal/modules/refresh/handlers"
	settingshandlers "github.com/aristath/dashboard/internal/modules/settings/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Port      int
	DevMode   bool
	Container *di.Container    // DI container with all services
	Jobs      *di.JobInstances // Maintenance jobs for manual triggering
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		container:      cfg.Container,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Container.ClientDataDB, cfg.Container.Cron, cfg.Jobs),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	// No WriteTimeout: event streams stay open indefinitely. Request
	// handlers are bounded by the timeout middleware instead.
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware shared by every route
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)

	refreshHandler := refreshhandlers.NewHandler(s.container.Refresh, s.log)

	s.router.Route("/api", func(r chi.Router) {
		// Long-lived streams: no timeout, no compression
		r.Group(func(r chi.Router) {
			eventsStreamHandler := NewEventsStreamHandler(s.container.EventBus, s.log)
			r.Get("/events/stream", eventsStreamHandler.ServeHTTP)
			refreshHandler.RegisterStreamRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !devMode {
				r.Use(middleware.Compress(5))
			}

			markethourshandlers.NewHandler(s.container.MarketGate, s.log).RegisterRoutes(r)
			refreshHandler.RegisterRoutes(r)
			observerhandlers.NewHandler(s.container.HeaderWidget, s.container.PriceManagement, s.log).RegisterRoutes(r)
			cachehandlers.NewHandler(s.container.ClientDataRepo, s.log).RegisterRoutes(r)
			settingshandlers.NewHandler(s.container.APIToken, s.log).RegisterRoutes(r)
			s.systemHandlers.RegisterRoutes(r)
		})
	})
}

// handleHealth reports liveness and whether the local store answers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	if err := s.container.ClientDataDB.QuickCheck(ctx); err != nil {
		s.log.Error().Err(err).Msg("Health check failed")
		status = http.StatusServiceUnavailable
		body["status"] = "unhealthy"
		body["error"] = "client data database unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
