// Package server provides the HTTP API for wraith.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/wraith/internal/config"
	"github.com/hyperjump/wraith/internal/conversation"
	"github.com/hyperjump/wraith/internal/models"
	"github.com/hyperjump/wraith/internal/retrieval"
	"github.com/hyperjump/wraith/internal/session"
	"github.com/hyperjump/wraith/internal/storage"
)

// Chatter runs conversation turns.
type Chatter interface {
	RunTurn(ctx context.Context, sessionID, userText string) (*conversation.TurnResult, error)
}

// ContextRetriever assembles retrieval context for a query.
type ContextRetriever interface {
	RetrieveThreads(ctx context.Context, query string) (*retrieval.Result, error)
}

// ThreadIngester stores one thread.
type ThreadIngester interface {
	IngestThread(ctx context.Context, in *models.ThreadInput) (int, error)
}

// Deps are the services behind the API.
type Deps struct {
	Chat      Chatter
	Retriever ContextRetriever
	Sessions  session.Store
	Ingester  ThreadIngester
	Store     storage.ChunkStore
	// Domains is the authoritative domain allowlist reported by /api/v1/domains.
	Domains []string
}

// Server is the HTTP server for the wraith API.
type Server struct {
	deps    Deps
	config  *config.ServerConfig
	logger  *zap.Logger
	handler http.Handler
	server  *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, config: cfg, logger: logger}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/invoke", s.handleChat)
	r.Post("/api/v1/retrieve", s.handleRetrieve)
	r.Post("/ragengine", s.handleRetrieve)
	r.Get("/api/v1/domains", s.handleDomains)
	r.Get("/api/v1/sessions/{id}", s.handleGetSession)
	r.Delete("/api/v1/sessions/{id}", s.handleDeleteSession)
	r.Post("/api/v1/threads", s.handleIngestThread)
	r.Post("/api/v1/clean", s.handleClean)
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) requestTimeout() time.Duration {
	if s.config != nil && s.config.RequestTimeout > 0 {
		return s.config.RequestTimeout
	}
	return 180 * time.Second
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
