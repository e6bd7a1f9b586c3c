package cache

import (
	"context"
	"errors"
	"time"

	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/rs/zerolog"
)

// FetcherConfig holds cache decorator configuration.
type FetcherConfig struct {
	// Source namespaces the keys of the wrapped fetcher
	Source string

	// TTL is how long a batch stays cached (default: DefaultTTL)
	TTL time.Duration
}

// Fetcher is a pagination.BatchFetcher that serves batches from a Store and
// falls through to the wrapped fetcher on a miss.
type Fetcher struct {
	inner  pagination.BatchFetcher
	store  Store
	config FetcherConfig
	logger zerolog.Logger
}

// NewFetcher wraps inner with a cache backed by store.
func NewFetcher(inner pagination.BatchFetcher, store Store, cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Fetcher{
		inner:  inner,
		store:  store,
		config: cfg,
		logger: logger.With().Str("component", "cache").Str("source", cfg.Source).Logger(),
	}
}

// FetchBatch implements pagination.BatchFetcher.
// Store errors are logged and bypassed; only the wrapped fetcher's errors are returned.
func (f *Fetcher) FetchBatch(ctx context.Context, page, size int) (pagination.Batch, error) {
	key := Key{Source: f.config.Source, Page: page, Size: size}

	entry, err := f.store.Get(ctx, key)
	switch {
	case err == nil:
		f.logger.Debug().Str("key", key.String()).Msg("Cache hit")
		return entry.Batch, nil
	case errors.Is(err, ErrCacheMiss):
		f.logger.Debug().Str("key", key.String()).Msg("Cache miss")
	default:
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache read failed, fetching directly")
	}

	batch, err := f.inner.FetchBatch(ctx, page, size)
	if err != nil {
		return pagination.Batch{}, err
	}
	if batch.Page == 0 {
		batch.Page = page
	}

	if err := f.store.Set(ctx, key, NewEntry(batch, f.config.TTL)); err != nil {
		f.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache write failed")
	}

	return batch, nil
}
