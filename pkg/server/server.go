// Package server exposes feeds over HTTP: the batch source endpoint that remote
// fetchers read from, and the session API used by browser-like clients to
// drive a feed with viewport signals and manual "load more" requests.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/session"
	"github.com/rs/zerolog"
)

// Config holds HTTP server configuration.
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RequestTimeout is the per-request handler deadline.
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MaxBatchSize caps the size parameter of the records endpoint.
	MaxBatchSize int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		RequestTimeout:  20 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxBatchSize:    100,
	}
}

// Server serves the feed API.
type Server struct {
	config   Config
	registry *session.Registry
	records  pagination.BatchFetcher
	logger   zerolog.Logger

	server       *http.Server
	shutdownOnce sync.Once
}

// New creates a server. records backs GET /api/v1/records; registry holds the
// sessions of the session API.
func New(cfg Config, registry *session.Registry, records pagination.BatchFetcher, logger zerolog.Logger) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if records == nil {
		return nil, fmt.Errorf("records fetcher is required")
	}
	if cfg.MaxBatchSize < 1 {
		return nil, fmt.Errorf("max_batch_size must be >= 1 (got %d)", cfg.MaxBatchSize)
	}

	s := &Server{
		config:   cfg,
		registry: registry,
		records:  records,
		logger:   logger.With().Str("component", "server").Logger(),
	}
	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the router. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	return NewRouter(s)
}

// Start serves until ctx is cancelled, then shuts down gracefully and closes
// every session.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("HTTP server shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err, ok := <-errChan:
		s.registry.CloseAll()
		if !ok {
			return nil
		}
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop shuts the server down and closes all sessions. Safe to call more than once.
func (s *Server) Stop(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.server.Shutdown(ctx)
		s.registry.CloseAll()
		if err != nil {
			s.logger.Error().Err(err).Msg("HTTP server shutdown error")
			return
		}
		s.logger.Info().Msg("HTTP server stopped")
	})
	return err
}
