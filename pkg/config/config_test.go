package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	require.Equal(t, 12, cfg.PageSize)
	require.Equal(t, 0, cfg.MaxRetries)
	require.Equal(t, time.Duration(0), cfg.RequestTimeout)
	require.Equal(t, 60, cfg.RateLimit)
	require.Empty(t, cfg.RedisAddr)
	require.False(t, cfg.Dedup)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artic.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `{
		// local development
		"base_url": "http://localhost:9000",
		"page_size": 24,
		"session_ttl": "10m",
		"request_timeout": "5s",
		"log_level": "debug",
		"dedup": true,
	}`)

	cfg, err := Load(path, map[string]string{
		"ARTIC_PAGE_SIZE":  "6",
		"ARTIC_REDIS_ADDR": "redis:6379",
		"ARTIC_LOG_PRETTY": "true",
		"ARTIC_USER_AGENT": "  ",
	})
	require.NoError(t, err)

	want := DefaultConfig()
	want.BaseURL = "http://localhost:9000"
	want.PageSize = 6
	want.SessionTTL = 10 * time.Minute
	want.RequestTimeout = 5 * time.Second
	want.LogLevel = logging.LevelDebug
	want.Dedup = true
	want.RedisAddr = "redis:6379"
	want.LogPretty = true

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", map[string]string{"ARTIC_MAX_RETRIES": "3", "ARTIC_SESSION_TTL": "1h"})
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, time.Hour, cfg.SessionTTL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr error
	}{
		{"missing file", "", nil, ErrConfigFileNotFound},
		{"bad jsonc", `{"page_size": }`, nil, ErrConfigInvalid},
		{"unknown key", `{"pagesize": 3}`, nil, ErrConfigInvalid},
		{"bad duration", `{"session_ttl": "soon"}`, nil, ErrConfigInvalid},
		{"bad level", `{"log_level": "loud"}`, nil, ErrConfigInvalid},
		{"invalid value", `{"page_size": 0}`, nil, ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.jsonc")
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path, tt.env)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApplyEnv_Errors(t *testing.T) {
	for key, value := range map[string]string{
		"ARTIC_PAGE_SIZE":   "twelve",
		"ARTIC_SESSION_TTL": "forever",
		"ARTIC_DEDUP":       "maybe",
		"ARTIC_LOG_LEVEL":   "chatty",
	} {
		t.Run(key, func(t *testing.T) {
			cfg := DefaultConfig()
			require.Error(t, cfg.ApplyEnv(map[string]string{key: value}))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.BaseURL = "api.artic.edu" }},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }},
		{"zero page size", func(c *Config) { c.PageSize = 0 }},
		{"empty listen", func(c *Config) { c.Listen = "" }},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }},
		{"zero cache size", func(c *Config) { c.SessionCacheSize = 0 }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"negative timeout", func(c *Config) { c.RequestTimeout = -time.Second }},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.LogLevel = logging.LevelWarn

	cc := cfg.ClientConfig()
	require.Equal(t, cfg.BaseURL, cc.BaseURL)
	require.Equal(t, 2, cc.MaxRetries)
	require.Nil(t, cc.Redis)

	lc := cfg.Logging()
	require.Equal(t, logging.LevelWarn, lc.Level)
	require.NotNil(t, lc.Output)
}
