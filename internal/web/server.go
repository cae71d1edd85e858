// Package web provides the JSON HTTP API for tabdiff.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/tabdiff/internal/config"
	"github.com/JonMunkholm/tabdiff/internal/core"
	"github.com/JonMunkholm/tabdiff/internal/web/middleware"
)

// Server is the HTTP server for the comparison API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
	limits  *rateLimiter
	uploads *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	if cfg.Rate.Enabled {
		s.limits = newRateLimiter(cfg.Rate.RequestsPerMinute, time.Minute)
		s.uploads = newRateLimiter(cfg.Rate.UploadLimit, time.Minute)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)
	s.router.Use(middleware.RequestMetadata)

	if s.limits != nil {
		s.router.Use(s.limits.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)

		// Endpoints receiving files share the tighter upload limit
		r.Group(func(r chi.Router) {
			if s.uploads != nil {
				r.Use(s.uploads.middleware)
			}
			r.Post("/suggest", s.handleSuggest)
			r.Post("/compare", s.handleCompare)
			r.Post("/compare/resolve", s.handleResolve)
		})

		// Comparison history
		r.Get("/comparisons", s.handleListComparisons)
		r.Get("/comparisons/{id}", s.handleGetComparison)
		r.Get("/comparisons/{id}/export", s.handleExportComparison)
		r.Post("/export", s.handleExportReport)

		// Field mapping catalog
		r.Get("/mappings", s.handleListMappings)
		r.Post("/mappings", s.handleCreateMapping)
		r.Post("/mappings/seed", s.handleSeedMappings)
		r.Get("/mappings/{id}", s.handleGetMapping)
		r.Put("/mappings/{id}", s.handleUpdateMapping)
		r.Delete("/mappings/{id}", s.handleDeleteMapping)
		r.Post("/mappings/{id}/variations", s.handleAddVariation)

		// Scheduled tasks
		r.Get("/tasks", s.handleListTasks)
		r.Post("/tasks", s.handleCreateTask)
		r.Post("/tasks/run", s.handleRunTasks)
		r.Get("/tasks/{id}", s.handleGetTask)
		r.Delete("/tasks/{id}", s.handleDeleteTask)
		r.Put("/tasks/{id}/status", s.handleSetTaskStatus)
	})
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limits != nil {
		s.limits.stop()
	}
	if s.uploads != nil {
		s.uploads.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// The API serves no documents, so nothing may load
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}

		next.ServeHTTP(w, r)
	})
}
