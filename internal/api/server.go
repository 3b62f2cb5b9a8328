// Package api serves the read-only operator dashboard: current pending
// discrepancies, run history, and aggregate stats. It never writes to the
// ledger; approvals only ever flow through the notification channel.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/example/firefly-kresus-sync/internal/application/sync"
	"github.com/example/firefly-kresus-sync/internal/infrastructure/storage"
)

// PendingSource exposes the most recent pending-discrepancy snapshot.
// The sync orchestrator implements it.
type PendingSource interface {
	Snapshot() *sync.Snapshot
}

// Config holds API server configuration.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Port:           8087,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	pending    PendingSource
}

// NewServer creates a new API server. repo and pending may be nil; the
// routes that need them are simply not registered.
func NewServer(cfg Config, repo storage.Repository, pending PendingSource, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/health"},
	}))
	router.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowedOrigins,
		AllowMethods:  []string{"GET", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))

	s := &Server{
		config:  cfg,
		router:  router,
		logger:  logger,
		repo:    repo,
		pending: pending,
	}

	s.setupRoutes()

	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.getHealth)

	v1 := s.router.Group("/api/v1")
	{
		if s.pending != nil {
			v1.GET("/pending", s.getPending)
		}
		if s.repo != nil {
			v1.GET("/runs", s.getRuns)
			v1.GET("/runs/:id", s.getRun)
			v1.GET("/stats", s.getStats)
		}
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the handler for testing.
func (s *Server) Router() http.Handler {
	return s.router
}
