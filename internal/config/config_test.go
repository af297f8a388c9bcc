package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datadesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 1500*time.Millisecond, cfg.Reply.Delay)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, 30, cfg.RateLimit.Requests)
	assert.True(t, cfg.StoreEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
port: "9090"
allowed_origins:
  - https://desk.example.com
store_dsn: ""
knowledge_file: kb.yaml
log_level: debug
log_format: text
reply:
  delay: 0s
session:
  ttl: 10m
  sweep_interval: 30s
rate_limit:
  requests: 5
  window: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://desk.example.com"}, cfg.AllowedOrigins)
	assert.False(t, cfg.StoreEnabled())
	assert.Equal(t, "kb.yaml", cfg.KnowledgeFile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Zero(t, cfg.Reply.Delay)
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 30*time.Second, cfg.Session.SweepInterval)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "port: \"9090\"\nsession:\n  ttl: 10m\n")
	t.Setenv("DATADESK_PORT", "7070")
	t.Setenv("DATADESK_SESSION__TTL", "2h")
	t.Setenv("DATADESK_RATE_LIMIT__REQUESTS", "7")
	t.Setenv("DATADESK_ALLOWED_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 7, cfg.RateLimit.Requests)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	path := writeFile(t, "log_level: loud\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeFile(t, "port: [unterminated\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"empty port", func(c *Config) { c.Port = "" }, "port"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"negative delay", func(c *Config) { c.Reply.Delay = -time.Second }, "reply.delay"},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, "session.ttl"},
		{"zero sweep", func(c *Config) { c.Session.SweepInterval = 0 }, "session.sweep_interval"},
		{"zero requests", func(c *Config) { c.RateLimit.Requests = 0 }, "rate_limit.requests"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "rate_limit.window"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
