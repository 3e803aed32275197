// Package server provides the HTTP API for Manabu.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/assist"
	"github.com/hyperjump/manabu/internal/auth"
	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/ingest"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

// Server is the HTTP server for the Manabu API.
type Server struct {
	engine   *assist.Engine
	ingester *ingest.Ingester
	storage  storage.Storage
	vectors  *vector.Index
	auth     *auth.Service
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. authSvc may be nil
// only when cfg.Auth.Disabled is set.
func NewServer(
	engine *assist.Engine,
	ingester *ingest.Ingester,
	store storage.Storage,
	vectors *vector.Index,
	authSvc *auth.Service,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:   engine,
		ingester: ingester,
		storage:  store,
		vectors:  vectors,
		auth:     authSvc,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the API router. Exposed for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(s.requestLogger)
	if s.config.Server.MaxConcurrent > 0 {
		r.Use(middleware.Throttle(s.config.Server.MaxConcurrent))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/api/v1/auth/register", s.handleRegister)
	r.Post("/api/v1/auth/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/api/v1/auth/me", s.handleMe)
		r.Post("/api/v1/auth/logout", s.handleLogout)

		r.Get("/api/v1/status", s.handleStatus)

		r.Post("/api/v1/documents", s.handleUploadDocument)
		r.Get("/api/v1/documents", s.handleListDocuments)
		r.Get("/api/v1/documents/{id}", s.handleGetDocument)
		r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)

		r.Post("/api/v1/query", s.handleQuery)
		r.Post("/api/v1/answer", s.handleAnswer)
		r.Post("/api/v1/summarize", s.handleSummarize)
		r.Post("/api/v1/quiz", s.handleQuiz)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// requestLogger logs each request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
