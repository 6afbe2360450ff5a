// ABOUTME: HTTP server exposing question answering and index maintenance under /api/v1
// ABOUTME: Handles routing, request logging, query rate limiting and graceful shutdown
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/harper/docqa/internal/models"
	"golang.org/x/time/rate"
)

// Prefix is the mount point for all API routes
const Prefix = "/api/v1"

const shutdownTimeout = 10 * time.Second

// Service is the question answering backend the API delegates to
type Service interface {
	Query(ctx context.Context, question, conversationID string) (*models.QueryResponse, error)
	IndexDocuments(ctx context.Context, dir string) (*models.IngestResult, error)
	ClearIndex(ctx context.Context) error
	StoreInfo() models.StoreInfo
	Health(ctx context.Context) models.Health
}

// Options configures the HTTP server
type Options struct {
	Addr           string
	DocumentsDir   string
	QueryRateLimit float64
	QueryRateBurst int
}

// Server serves the HTTP API
type Server struct {
	service      Service
	documentsDir string
	limiter      *rate.Limiter
	handler      http.Handler
	httpServer   *http.Server
	logger       *log.Logger
}

// NewServer builds the router. A QueryRateLimit <= 0 disables rate limiting.
func NewServer(service Service, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	limit := rate.Inf
	burst := opts.QueryRateBurst
	if opts.QueryRateLimit > 0 {
		limit = rate.Limit(opts.QueryRateLimit)
	}
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		service:      service,
		documentsDir: opts.DocumentsDir,
		limiter:      rate.NewLimiter(limit, burst),
		logger:       logger.WithPrefix("api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET "+Prefix+"/health", s.handleHealth)
	mux.Handle("POST "+Prefix+"/query", s.rateLimit(http.HandlerFunc(s.handleQuery)))
	mux.HandleFunc("POST "+Prefix+"/index-documents", s.handleIndexDocuments)
	mux.HandleFunc("GET "+Prefix+"/debug/store-info", s.handleStoreInfo)
	mux.HandleFunc("POST "+Prefix+"/clear-index", s.handleClearIndex)

	s.handler = s.logRequests(mux)
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.httpServer.Addr)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
