// Package cache provides a Redis-backed batch cache for feed sources.
//
// A Fetcher wraps any pagination.BatchFetcher. Batches are stored under a
// deterministic key per source, page and size, and expire after a fixed TTL.
// The cache is a latency optimisation only: every Redis failure degrades to a
// direct fetch from the wrapped source, and fetch failures are never cached.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	manager := cache.NewManager(redisClient)
//
//	fetcher := cache.NewFetcher(gen, manager, cache.FetcherConfig{
//		Source: "generator",
//		TTL:    10 * time.Minute,
//	}, logger)
//
//	ctrl, err := pagination.NewController(fetcher, pagination.DefaultConfig(), logger)
//
// # Keys
//
// Keys have the form feed:{source}:page={P}:size={S}, for example
//
//	feed:generator:page=3:size=10
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - feed_cache_hits_total{layer="redis"} - Cache hits
//   - feed_cache_misses_total - Cache misses
//   - feed_cache_size_bytes{layer="redis"} - Bytes written to and read from cache
//   - feed_cache_errors_total{operation} - Cache operation errors
package cache
