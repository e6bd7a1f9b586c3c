// Package config loads feed configuration from a YAML file, FEED_* environment
// variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FEED_FEED_BATCH_SIZE.
const EnvPrefix = "FEED"

// Config is the full feed configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Feed    FeedConfig    `mapstructure:"feed" yaml:"feed"`
	Trigger TriggerConfig `mapstructure:"trigger" yaml:"trigger"`
	Source  SourceConfig  `mapstructure:"source" yaml:"source"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Viewer  ViewerConfig  `mapstructure:"viewer" yaml:"viewer"`
}

// LoggingConfig controls zerolog output.
type LoggingConfig struct {
	// Level is the minimum level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error DEBUG INFO WARN ERROR" yaml:"level"`

	// Pretty enables console output instead of JSON.
	Pretty bool `mapstructure:"pretty" yaml:"pretty"`

	// Output is stderr, stdout or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// FeedConfig controls the pagination controller.
type FeedConfig struct {
	// BatchSize is the number of records per page.
	BatchSize int `mapstructure:"batch_size" validate:"required,min=1,max=1000" yaml:"batch_size"`

	// TerminalPage is the last page; 0 relies on the source's final flag.
	TerminalPage int `mapstructure:"terminal_page" validate:"gte=0" yaml:"terminal_page"`
}

// TriggerConfig controls the proximity trigger.
type TriggerConfig struct {
	// ThresholdPixels is the remaining distance that fires a request.
	ThresholdPixels float64 `mapstructure:"threshold_pixels" validate:"gte=0" yaml:"threshold_pixels"`
}

// SourceConfig selects the fetch collaborator.
type SourceConfig struct {
	// Kind is "generator" or "http".
	Kind string `mapstructure:"kind" validate:"required,oneof=generator http" yaml:"kind"`

	// Delay is the generator's simulated latency.
	Delay time.Duration `mapstructure:"delay" validate:"gte=0" yaml:"delay"`

	// Seed makes generated users reproducible; 0 seeds from the clock.
	Seed int64 `mapstructure:"seed" yaml:"seed"`

	// MaxPages marks the generator's last page as final; 0 disables.
	MaxPages int `mapstructure:"max_pages" validate:"gte=0" yaml:"max_pages"`

	// BaseURL is the remote API root for the http kind.
	BaseURL string `mapstructure:"base_url" validate:"required_if=Kind http,omitempty,url" yaml:"base_url"`

	// UserAgent is sent by the http kind.
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// CacheConfig controls the Redis batch cache.
type CacheConfig struct {
	// Enabled wraps the source in the Redis cache.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// RedisAddr is host:port of the Redis server.
	RedisAddr string `mapstructure:"redis_addr" validate:"required_if=Enabled true,omitempty,hostname_port" yaml:"redis_addr"`

	// RedisDB selects the Redis database.
	RedisDB int `mapstructure:"redis_db" validate:"gte=0,lte=15" yaml:"redis_db"`

	// TTL is how long cached batches live.
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0" yaml:"ttl"`

	// WarmConcurrency is the worker count of "feed warm".
	WarmConcurrency int `mapstructure:"warm_concurrency" validate:"min=1,max=64" yaml:"warm_concurrency"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0" yaml:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0" yaml:"shutdown_timeout"`
	MaxBatchSize    int           `mapstructure:"max_batch_size" validate:"min=1" yaml:"max_batch_size"`
	MaxSessions     int           `mapstructure:"max_sessions" validate:"gte=0" yaml:"max_sessions"`
}

// ViewerConfig controls the terminal viewer.
type ViewerConfig struct {
	// RowPixels converts terminal rows into trigger layout units.
	RowPixels float64 `mapstructure:"row_pixels" validate:"gt=0" yaml:"row_pixels"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FEED_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath or a missing file is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys absent
// from the file.
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", d.Logging.Pretty)
	v.SetDefault("logging.output", d.Logging.Output)
	v.SetDefault("feed.batch_size", d.Feed.BatchSize)
	v.SetDefault("feed.terminal_page", d.Feed.TerminalPage)
	v.SetDefault("trigger.threshold_pixels", d.Trigger.ThresholdPixels)
	v.SetDefault("source.kind", d.Source.Kind)
	v.SetDefault("source.delay", d.Source.Delay)
	v.SetDefault("source.seed", d.Source.Seed)
	v.SetDefault("source.max_pages", d.Source.MaxPages)
	v.SetDefault("source.base_url", d.Source.BaseURL)
	v.SetDefault("source.user_agent", d.Source.UserAgent)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.warm_concurrency", d.Cache.WarmConcurrency)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_batch_size", d.Server.MaxBatchSize)
	v.SetDefault("server.max_sessions", d.Server.MaxSessions)
	v.SetDefault("viewer.row_pixels", d.Viewer.RowPixels)
}

// Validate checks cfg against its validate tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// durationDecodeHook converts strings like "4s" and raw integers to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}
