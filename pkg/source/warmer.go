package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// WarmerConfig holds warmer configuration
type WarmerConfig struct {
	// MaxConcurrency is the number of parallel page fetches
	MaxConcurrency int
	// BatchSize is the page size to warm
	BatchSize int
	// BufferSize for the page queue (default: page count)
	BufferSize int
}

// DefaultWarmerConfig returns the default warmer configuration
func DefaultWarmerConfig() WarmerConfig {
	return WarmerConfig{
		MaxConcurrency: 4,
		BatchSize:      10,
	}
}

// WarmResult summarises a warm run
type WarmResult struct {
	Requested int
	Warmed    int
	Failed    []int
	Final     int // first page reported as final, 0 if none
	Duration  time.Duration
}

// Warmer fetches a range of pages in parallel through a fetcher so that a
// caching fetcher is populated before interactive feeds ask for them.
// It never drives a pagination controller.
type Warmer struct {
	fetcher pagination.BatchFetcher
	config  WarmerConfig
	logger  zerolog.Logger
}

// NewWarmer creates a new warmer
func NewWarmer(fetcher pagination.BatchFetcher, config WarmerConfig, logger zerolog.Logger) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}

	return &Warmer{
		fetcher: fetcher,
		config:  config,
		logger:  logger.With().Str("component", "warmer").Logger(),
	}
}

// Warm fetches pages 1..pages using a worker pool.
// Page failures are collected, not fatal; only context cancellation aborts.
func (w *Warmer) Warm(ctx context.Context, pages int) (WarmResult, error) {
	start := time.Now()
	result := WarmResult{Requested: pages}
	if pages <= 0 {
		return result, nil
	}

	bufferSize := w.config.BufferSize
	if bufferSize <= 0 {
		bufferSize = pages
	}

	w.logger.Info().
		Int("pages", pages).
		Int("batch_size", w.config.BatchSize).
		Int("workers", w.config.MaxConcurrency).
		Msg("Starting cache warm")

	pageQueue := make(chan int, bufferSize)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	// Fill page queue
	g.Go(func() error {
		defer close(pageQueue)
		for page := 1; page <= pages; page++ {
			select {
			case pageQueue <- page:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < w.config.MaxConcurrency; i++ {
		workerID := i
		g.Go(func() error {
			processed := 0
			for page := range pageQueue {
				if err := gctx.Err(); err != nil {
					w.logger.Debug().
						Int("worker_id", workerID).
						Int("pages_processed", processed).
						Msg("Worker stopping (context cancelled)")
					return err
				}

				batch, err := w.fetcher.FetchBatch(gctx, page, w.config.BatchSize)

				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, page)
				} else {
					result.Warmed++
					if batch.Final && (result.Final == 0 || page < result.Final) {
						result.Final = page
					}
				}
				warmed := result.Warmed
				mu.Unlock()

				if err != nil {
					w.logger.Warn().
						Err(err).
						Int("worker_id", workerID).
						Int("page", page).
						Msg("Page warm failed")
					continue
				}
				processed++

				// Progress logging every 50 pages
				if warmed%50 == 0 {
					w.logger.Info().
						Int("warmed", warmed).
						Int("total", pages).
						Float64("progress_pct", float64(warmed)/float64(pages)*100).
						Msg("Warm progress")
				}
			}

			if processed > 0 {
				w.logger.Debug().
					Int("worker_id", workerID).
					Int("pages_processed", processed).
					Msg("Worker completed")
			}
			return nil
		})
	}

	err := g.Wait()
	sort.Ints(result.Failed)
	result.Duration = time.Since(start)

	if err != nil {
		return result, fmt.Errorf("warm cancelled (%d/%d pages): %w", result.Warmed, pages, err)
	}

	w.logger.Info().
		Int("warmed", result.Warmed).
		Int("failed", len(result.Failed)).
		Dur("duration", result.Duration).
		Msg("Cache warm complete")

	return result, nil
}
