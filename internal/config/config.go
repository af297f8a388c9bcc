// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore selects
// a nested key: DATADESK_SESSION__TTL sets session.ttl.
const EnvPrefix = "DATADESK_"

// DefaultFile is the config file looked up when no path is given.
const DefaultFile = "datadesk.yaml"

// Config holds all application configuration.
type Config struct {
	Port           string          `koanf:"port" yaml:"port"`
	AllowedOrigins []string        `koanf:"allowed_origins" yaml:"allowed_origins"`
	StoreDSN       string          `koanf:"store_dsn" yaml:"store_dsn"`
	KnowledgeFile  string          `koanf:"knowledge_file" yaml:"knowledge_file"`
	LogLevel       string          `koanf:"log_level" yaml:"log_level"`
	LogFormat      string          `koanf:"log_format" yaml:"log_format"`
	Reply          ReplyConfig     `koanf:"reply" yaml:"reply"`
	Session        SessionConfig   `koanf:"session" yaml:"session"`
	RateLimit      RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
}

// ReplyConfig controls the simulated assistant latency.
type ReplyConfig struct {
	Delay time.Duration `koanf:"delay" yaml:"delay"`
}

// SessionConfig controls how long idle conversations are kept.
type SessionConfig struct {
	TTL           time.Duration `koanf:"ttl" yaml:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval" yaml:"sweep_interval"`
}

// RateLimitConfig bounds how many messages one session may submit per window.
type RateLimitConfig struct {
	Requests int           `koanf:"requests" yaml:"requests"`
	Window   time.Duration `koanf:"window" yaml:"window"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() *Config {
	return &Config{
		Port:      "8080",
		StoreDSN:  "./data/datadesk.db",
		LogLevel:  "info",
		LogFormat: "json",
		Reply: ReplyConfig{
			Delay: 1500 * time.Millisecond,
		},
		Session: SessionConfig{
			TTL:           60 * time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests: 30,
			Window:   time.Minute,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// it exists), then DATADESK_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envValue maps DATADESK_RATE_LIMIT__WINDOW to rate_limit.window and splits
// comma-separated origin lists.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")

	if key == "allowed_origins" {
		var origins []string
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

var (
	validLogLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validLogFormats = map[string]bool{"json": true, "text": true}
)

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if !validLogFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("invalid log_format %q: must be json or text", c.LogFormat)
	}
	if c.Reply.Delay < 0 {
		return fmt.Errorf("reply.delay must be non-negative")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be > 0")
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("session.sweep_interval must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate_limit.window must be > 0")
	}
	return nil
}

// StoreEnabled reports whether an interaction store is configured.
func (c *Config) StoreEnabled() bool {
	return strings.TrimSpace(c.StoreDSN) != ""
}

// IsDevelopment returns true if any allowed origin points at a local frontend.
func (c *Config) IsDevelopment() bool {
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.Contains(o, "localhost") || strings.Contains(o, "127.0.0.1") {
			return true
		}
	}
	return false
}
