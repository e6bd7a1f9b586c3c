package commands

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/infinite-feed/pkg/cache"
	"github.com/Sternrassler/infinite-feed/pkg/config"
	"github.com/Sternrassler/infinite-feed/pkg/pagination"
	"github.com/Sternrassler/infinite-feed/pkg/source"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// backend is the fetch chain a command runs against.
type backend struct {
	Fetcher pagination.BatchFetcher
	Name    string
	Cache   *cache.Manager

	redis *redis.Client
}

// Close releases the Redis connection, if any.
func (b *backend) Close() error {
	if b.redis == nil {
		return nil
	}
	return b.redis.Close()
}

// newSource builds the configured base fetcher and the name its cache keys use.
func newSource(cfg *config.Config, logger zerolog.Logger) (pagination.BatchFetcher, string, error) {
	switch cfg.Source.Kind {
	case "http":
		f, err := source.NewHTTPFetcher(source.HTTPConfig{
			BaseURL:   cfg.Source.BaseURL,
			UserAgent: cfg.Source.UserAgent,
		}, logger)
		if err != nil {
			return nil, "", err
		}
		name := cfg.Source.BaseURL
		if u, err := url.Parse(cfg.Source.BaseURL); err == nil && u.Host != "" {
			name = u.Host
		}
		return f, name, nil
	case "generator":
		return source.NewGenerator(source.GeneratorConfig{
			Delay:    cfg.Source.Delay,
			Seed:     cfg.Source.Seed,
			MaxPages: cfg.Source.MaxPages,
		}, logger), "generator", nil
	default:
		return nil, "", fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// newBackend wraps the source in the Redis cache when enabled (or required).
// An unreachable Redis is fatal only when requireCache is set; otherwise the
// cache stays in place and degrades to direct fetches.
func newBackend(ctx context.Context, cfg *config.Config, requireCache bool, logger zerolog.Logger) (*backend, error) {
	inner, name, err := newSource(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	b := &backend{Fetcher: inner, Name: name}

	if !cfg.Cache.Enabled && !requireCache {
		logger.Info().Str("source", name).Msg("Cache disabled")
		return b, nil
	}

	b.redis = redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
		DB:   cfg.Cache.RedisDB,
	})
	b.Cache = cache.NewManager(b.redis)

	if err := b.Cache.Ping(ctx); err != nil {
		if requireCache {
			_ = b.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Cache.RedisAddr, err)
		}
		logger.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Redis unreachable, cache will fall through")
	} else {
		logger.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Connected to Redis")
	}

	b.Fetcher = cache.NewFetcher(inner, b.Cache, cache.FetcherConfig{
		Source: name,
		TTL:    cfg.Cache.TTL,
	}, logger)
	return b, nil
}

func paginationConfig(cfg *config.Config) pagination.Config {
	return pagination.Config{
		BatchSize:    cfg.Feed.BatchSize,
		TerminalPage: cfg.Feed.TerminalPage,
	}
}
