package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/infinite-feed/pkg/server"
	"github.com/Sternrassler/infinite-feed/pkg/session"
	"github.com/Sternrassler/infinite-feed/pkg/trigger"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the records and session API",
	Long: `Serve the HTTP API:

  GET    /api/v1/records?page=P&size=S     one batch from the configured source
  POST   /api/v1/sessions                  start a feed (loads page 1)
  GET    /api/v1/sessions/{id}             feed snapshot (?group=batch for headers)
  POST   /api/v1/sessions/{id}/viewport    viewport geometry for the proximity trigger
  POST   /api/v1/sessions/{id}/more        manual "load more"
  DELETE /api/v1/sessions/{id}             end a feed
  GET    /health, /metrics

Examples:
  # Generator source with the default 4s latency
  feed serve

  # Cached, faster generator
  FEED_CACHE_ENABLED=true FEED_SOURCE_DELAY=200ms feed serve --addr :9090`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	registry, err := session.NewRegistry(b.Fetcher, session.Config{
		Pagination:  paginationConfig(cfg),
		Trigger:     trigger.Config{ThresholdPixels: cfg.Trigger.ThresholdPixels},
		MaxSessions: cfg.Server.MaxSessions,
	}, logger)
	if err != nil {
		return fmt.Errorf("create session registry: %w", err)
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBatchSize:    cfg.Server.MaxBatchSize,
	}, registry, b.Fetcher, logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Server.Addr).
		Str("source", b.Name).
		Int("batch_size", cfg.Feed.BatchSize).
		Int("terminal_page", cfg.Feed.TerminalPage).
		Bool("cache", b.Cache != nil).
		Msg("Starting feed server")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			logger.Info().Msg("Shutdown signal received")
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info().Msg("Feed server stopped")
	return nil
}
