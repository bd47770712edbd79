// Package server provides the HTTP API for imseek.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"imseek/config"
	"imseek/internal/usecase"
)

// Server exposes search and index operations over HTTP.
type Server struct {
	engine  *usecase.Engine
	builder *usecase.Builder
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server

	buildMu sync.Mutex // one rebuild at a time
}

// NewServer creates a server with the given dependencies.
func NewServer(engine *usecase.Engine, builder *usecase.Builder, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		engine:  engine,
		builder: builder,
		config:  cfg,
		logger:  logger,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/health", s.handleHealth)
	})

	// Rebuilds can outlive any fixed timeout; they run for as long as the
	// client keeps the connection open.
	r.Post("/api/v1/index", s.handleIndex)

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           r,
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
