package config

import "time"

// Default returns the built-in configuration: 10 users per page, five pages,
// an 800 pixel trigger threshold and a generator answering after 4 seconds.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
		},
		Feed: FeedConfig{
			BatchSize:    10,
			TerminalPage: 5,
		},
		Trigger: TriggerConfig{
			ThresholdPixels: 800,
		},
		Source: SourceConfig{
			Kind:      "generator",
			Delay:     4 * time.Second,
			UserAgent: "infinite-feed/0.1.0",
		},
		Cache: CacheConfig{
			RedisAddr:       "localhost:6379",
			TTL:             10 * time.Minute,
			WarmConcurrency: 4,
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  20 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBatchSize:    100,
			MaxSessions:     1000,
		},
		Viewer: ViewerConfig{
			RowPixels: 40,
		},
	}
}

// ApplyDefaults fills zero values that have no meaningful zero setting.
// Fields where zero is valid (terminal_page, max_pages, seed, delay) are left alone.
func ApplyDefaults(cfg *Config) {
	d := Default()

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = d.Logging.Output
	}
	if cfg.Feed.BatchSize == 0 {
		cfg.Feed.BatchSize = d.Feed.BatchSize
	}
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = d.Source.Kind
	}
	if cfg.Source.UserAgent == "" {
		cfg.Source.UserAgent = d.Source.UserAgent
	}
	if cfg.Cache.RedisAddr == "" {
		cfg.Cache.RedisAddr = d.Cache.RedisAddr
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = d.Cache.TTL
	}
	if cfg.Cache.WarmConcurrency == 0 {
		cfg.Cache.WarmConcurrency = d.Cache.WarmConcurrency
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = d.Server.Addr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = d.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = d.Server.WriteTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = d.Server.RequestTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = d.Server.ShutdownTimeout
	}
	if cfg.Server.MaxBatchSize == 0 {
		cfg.Server.MaxBatchSize = d.Server.MaxBatchSize
	}
	if cfg.Viewer.RowPixels == 0 {
		cfg.Viewer.RowPixels = d.Viewer.RowPixels
	}
}
