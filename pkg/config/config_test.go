package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Feed.BatchSize != 10 || cfg.Feed.TerminalPage != 5 {
		t.Errorf("Feed = %+v, want batch 10 terminal 5", cfg.Feed)
	}
	if cfg.Trigger.ThresholdPixels != 800 {
		t.Errorf("ThresholdPixels = %v, want 800", cfg.Trigger.ThresholdPixels)
	}
	if cfg.Source.Kind != "generator" || cfg.Source.Delay != 4*time.Second {
		t.Errorf("Source = %+v, want generator with 4s delay", cfg.Source)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false by default")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr = %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
feed:
  batch_size: 25
  terminal_page: 0
source:
  kind: http
  base_url: http://feed.internal:8080
cache:
  enabled: true
  redis_addr: redis:6379
  ttl: 2m
server:
  request_timeout: 45s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Feed.BatchSize != 25 || cfg.Feed.TerminalPage != 0 {
		t.Errorf("Feed = %+v, want batch 25 terminal 0", cfg.Feed)
	}
	if cfg.Source.Kind != "http" || cfg.Source.BaseURL != "http://feed.internal:8080" {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != 2*time.Minute {
		t.Errorf("Cache = %+v, want enabled with 2m ttl", cfg.Cache)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("RequestTimeout = %v, want 45s", cfg.Server.RequestTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Trigger.ThresholdPixels != 800 {
		t.Errorf("ThresholdPixels = %v, want 800", cfg.Trigger.ThresholdPixels)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "feed:\n  batch_size: 25\n")
	t.Setenv("FEED_FEED_BATCH_SIZE", "7")
	t.Setenv("FEED_SOURCE_DELAY", "250ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feed.BatchSize != 7 {
		t.Errorf("BatchSize = %d, want 7 from env", cfg.Feed.BatchSize)
	}
	if cfg.Source.Delay != 250*time.Millisecond {
		t.Errorf("Delay = %v, want 250ms from env", cfg.Source.Delay)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "feed: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() of malformed YAML should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"batch size zero", func(c *Config) { c.Feed.BatchSize = 0 }, true},
		{"negative terminal page", func(c *Config) { c.Feed.TerminalPage = -1 }, true},
		{"negative threshold", func(c *Config) { c.Trigger.ThresholdPixels = -1 }, true},
		{"unknown source", func(c *Config) { c.Source.Kind = "ftp" }, true},
		{"http without url", func(c *Config) { c.Source.Kind = "http" }, true},
		{"http with url", func(c *Config) {
			c.Source.Kind = "http"
			c.Source.BaseURL = "http://localhost:8080"
		}, false},
		{"cache without addr", func(c *Config) {
			c.Cache.Enabled = true
			c.Cache.RedisAddr = ""
		}, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"zero row pixels", func(c *Config) { c.Viewer.RowPixels = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Feed.TerminalPage = 0
	ApplyDefaults(cfg)

	if cfg.Feed.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.Feed.BatchSize)
	}
	if cfg.Feed.TerminalPage != 0 {
		t.Errorf("TerminalPage = %d, want 0 kept", cfg.Feed.TerminalPage)
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() after ApplyDefaults error = %v", err)
	}
}
