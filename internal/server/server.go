// Package server provides the HTTP API for Kaimono.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kaimono/internal/config"
	"github.com/hyperjump/kaimono/internal/metrics"
	"github.com/hyperjump/kaimono/internal/query"
	"go.uber.org/zap"
)

// Server is the HTTP server for the Kaimono API.
// The engine can be replaced while serving; each request uses the engine
// current when it started.
type Server struct {
	engine atomic.Pointer[query.Engine]
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server that answers queries with engine.
func NewServer(engine *query.Engine, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config: cfg,
		logger: logger,
	}
	s.engine.Store(engine)
	metrics.DatasetRecords.Set(float64(engine.Dataset().Len()))
	return s
}

// Engine returns the engine answering queries.
func (s *Server) Engine() *query.Engine {
	return s.engine.Load()
}

// SetEngine replaces the engine, for example after the dataset was reloaded.
func (s *Server) SetEngine(engine *query.Engine) {
	s.engine.Store(engine)
	metrics.DatasetRecords.Set(float64(engine.Dataset().Len()))
	s.logger.Info("dataset swapped", zap.Int("records", engine.Dataset().Len()))
}

// Router returns the API routes with middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(metrics.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dataset", s.handleDataset)
		r.Get("/operations", s.handleOperations)
		r.Get("/query/{operation}", s.handleQuery)
		r.Post("/query/{operation}", s.handleQuery)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server",
		zap.String("addr", addr),
		zap.Int("records", s.Engine().Dataset().Len()),
	)
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
