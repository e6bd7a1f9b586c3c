package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/source"
	"github.com/spf13/cobra"
)

var (
	warmPages      int
	warmInvalidate bool
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-fill the Redis cache with the first pages",
	Long: `Fetch pages 1..N from the configured source in parallel and store them in
Redis so that new feeds are served from cache. Requires a reachable Redis.

Examples:
  # Warm the terminal page range
  feed warm

  # Drop stale entries first and warm 20 pages
  feed warm --invalidate --pages 20`,
	RunE: runWarm,
}

func init() {
	warmCmd.Flags().IntVar(&warmPages, "pages", 0, "pages to warm (default: feed.terminal_page, or 5)")
	warmCmd.Flags().BoolVar(&warmInvalidate, "invalidate", false, "delete cached batches of this source first")
}

func runWarm(cmd *cobra.Command, args []string) error {
	pages := warmPages
	if pages <= 0 {
		pages = cfg.Feed.TerminalPage
	}
	if pages <= 0 {
		pages = 5
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := newBackend(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if warmInvalidate {
		n, err := b.Cache.Invalidate(ctx, b.Name)
		if err != nil {
			return fmt.Errorf("invalidate %s: %w", b.Name, err)
		}
		logger.Info().Str("source", b.Name).Int("deleted", n).Msg("Cache invalidated")
	}

	w := source.NewWarmer(b.Fetcher, source.WarmerConfig{
		MaxConcurrency: cfg.Cache.WarmConcurrency,
		BatchSize:      cfg.Feed.BatchSize,
	}, logger)
	result, err := w.Warm(ctx, pages)
	if err != nil {
		return fmt.Errorf("warm: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Warmed %d/%d pages of %s in %s\n", result.Warmed, result.Requested, b.Name, result.Duration.Round(time.Millisecond))
	if len(result.Failed) > 0 {
		fmt.Fprintf(out, "Failed pages: %v\n", result.Failed)
	}
	if result.Final > 0 {
		fmt.Fprintf(out, "Source reported page %d as final\n", result.Final)
	}
	return nil
}
