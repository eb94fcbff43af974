// Package server assembles the HTTP API: routes, middleware chain, and
// lifecycle management.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sylvaincormier/bittensor-async-api/internal/crypto"
	"github.com/sylvaincormier/bittensor-async-api/internal/domain"
	"github.com/sylvaincormier/bittensor-async-api/internal/server/handler"
	"github.com/sylvaincormier/bittensor-async-api/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimit       int    // requests per window per client; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Dividends *handler.DividendHandler
	Jobs      *handler.JobHandler
	Token     *handler.TokenHandler
	Metrics   http.Handler // /metrics scrape endpoint; nil disables
}

// authExempt lists paths reachable without credentials: liveness probes,
// the metrics scraper, and the token issuance endpoint itself.
var authExempt = []string{
	"/api/health",
	"/metrics",
	"/api/v1/auth/token",
}

// Server is the HTTP API server for the tao dividends service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// New creates a Server with all routes registered on the ServeMux and the
// middleware chain applied (CORS, logging, metrics, rate limiting, auth).
func New(cfg Config, handlers Handlers, signer *crypto.TokenSigner, limiter domain.RateLimiter, observer middleware.RequestObserver, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check and metrics (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	if handlers.Metrics != nil {
		mux.Handle("GET /metrics", handlers.Metrics)
	}

	// Token issuance.
	mux.HandleFunc("POST /api/v1/auth/token", handlers.Token.IssueToken)

	// Dividend endpoints.
	mux.HandleFunc("GET /api/v1/tao_dividends", handlers.Dividends.GetDividends)
	mux.HandleFunc("GET /api/v1/tao_dividends/history", handlers.Dividends.GetHistory)

	// Trade job endpoints.
	mux.HandleFunc("GET /api/v1/trades", handlers.Jobs.ListJobs)
	mux.HandleFunc("GET /api/v1/trades/{id}", handlers.Jobs.GetJob)

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey, signer, authExempt)(h)
	h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
	h = middleware.Metrics(observer)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Handler exposes the fully wrapped handler chain for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
