// Package config assembles runtime settings from defaults, an optional
// JSONC file and ARTIC_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/client"
	"github.com/Sternrassler/artic-browser/pkg/logging"
	"github.com/Sternrassler/artic-browser/pkg/ratelimit"
	"github.com/Sternrassler/artic-browser/pkg/session"
	"github.com/tailscale/hujson"
)

// Errors returned while loading configuration.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigInvalid      = errors.New("invalid config")
)

// Config holds all runtime settings.
type Config struct {
	BaseURL   string
	UserAgent string

	// PageSize is the row count of new sessions.
	PageSize int

	// Listen is the HTTP address of the serve command.
	Listen string

	// RedisAddr enables the Redis session store and the shared request
	// budget. Empty keeps sessions in memory with no budget.
	RedisAddr string

	SessionTTL       time.Duration
	SessionCacheSize int

	MaxRetries     int
	RequestTimeout time.Duration
	RateLimit      int

	LogLevel  logging.LogLevel
	LogPretty bool

	// Dedup makes auto-select skip artworks that are already selected.
	Dedup bool
}

// DefaultConfig returns single-attempt, in-memory defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          client.DefaultBaseURL,
		UserAgent:        "artic-browser/0.1.0",
		PageSize:         session.DefaultPageSize,
		Listen:           ":8080",
		RedisAddr:        "",
		SessionTTL:       session.DefaultTTL,
		SessionCacheSize: session.DefaultMemoryStoreSize,
		MaxRetries:       0,
		RequestTimeout:   0,
		RateLimit:        ratelimit.DefaultRequestsPerMinute,
		LogLevel:         logging.LevelInfo,
		LogPretty:        false,
		Dedup:            false,
	}
}

// fileConfig is the on-disk shape. Pointers mark keys that were set.
type fileConfig struct {
	BaseURL          *string `json:"base_url"`
	UserAgent        *string `json:"user_agent"`
	PageSize         *int    `json:"page_size"`
	Listen           *string `json:"listen"`
	RedisAddr        *string `json:"redis_addr"`
	SessionTTL       *string `json:"session_ttl"`
	SessionCacheSize *int    `json:"session_cache_size"`
	MaxRetries       *int    `json:"max_retries"`
	RequestTimeout   *string `json:"request_timeout"`
	RateLimit        *int    `json:"rate_limit"`
	LogLevel         *string `json:"log_level"`
	LogPretty        *bool   `json:"log_pretty"`
	Dedup            *bool   `json:"dedup"`
}

// Load builds a configuration from defaults, the file at path (skipped when
// path is empty) and env, in that order, and validates it.
func Load(path string, env map[string]string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(env); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return cfg, nil
}

// LoadFile overlays the keys set in a JSONC file. Comments and trailing
// commas are allowed.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := c.parse(data); err != nil {
		return fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}
	return nil
}

func (c *Config) parse(data []byte) error {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig
	dec := json.NewDecoder(strings.NewReader(string(standardized)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.UserAgent, fc.UserAgent)
	setString(&c.Listen, fc.Listen)
	setString(&c.RedisAddr, fc.RedisAddr)
	setInt(&c.PageSize, fc.PageSize)
	setInt(&c.SessionCacheSize, fc.SessionCacheSize)
	setInt(&c.MaxRetries, fc.MaxRetries)
	setInt(&c.RateLimit, fc.RateLimit)
	if fc.LogPretty != nil {
		c.LogPretty = *fc.LogPretty
	}
	if fc.Dedup != nil {
		c.Dedup = *fc.Dedup
	}

	if fc.SessionTTL != nil {
		if c.SessionTTL, err = time.ParseDuration(*fc.SessionTTL); err != nil {
			return fmt.Errorf("session_ttl: %w", err)
		}
	}
	if fc.RequestTimeout != nil {
		if c.RequestTimeout, err = time.ParseDuration(*fc.RequestTimeout); err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
	}
	if fc.LogLevel != nil {
		level, ok := logging.ParseLevel(*fc.LogLevel)
		if !ok {
			return fmt.Errorf("log_level: unknown level %q", *fc.LogLevel)
		}
		c.LogLevel = level
	}

	return nil
}

// ApplyEnv overlays ARTIC_* variables. Empty values are ignored.
func (c *Config) ApplyEnv(env map[string]string) error {
	get := func(key string) (string, bool) {
		v, ok := env[key]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("ARTIC_BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := get("ARTIC_USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := get("ARTIC_LISTEN"); ok {
		c.Listen = v
	}
	if v, ok := get("ARTIC_REDIS_ADDR"); ok {
		c.RedisAddr = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"ARTIC_PAGE_SIZE", &c.PageSize},
		{"ARTIC_MAX_RETRIES", &c.MaxRetries},
		{"ARTIC_RATE_LIMIT", &c.RateLimit},
	}
	for _, e := range ints {
		if v, ok := get(e.key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	if v, ok := get("ARTIC_SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ARTIC_SESSION_TTL: %w", err)
		}
		c.SessionTTL = d
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"ARTIC_LOG_PRETTY", &c.LogPretty},
		{"ARTIC_DEDUP", &c.Dedup},
	}
	for _, e := range bools {
		if v, ok := get(e.key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = b
		}
	}

	if v, ok := get("ARTIC_LOG_LEVEL"); ok {
		level, known := logging.ParseLevel(v)
		if !known {
			return fmt.Errorf("ARTIC_LOG_LEVEL: unknown level %q", v)
		}
		c.LogLevel = level
	}

	return nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return fmt.Errorf("base URL must include scheme and host")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be positive")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("session cache size must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative")
	}

	return nil
}

// ClientConfig derives the API client settings.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:        c.BaseURL,
		UserAgent:      c.UserAgent,
		RateLimit:      c.RateLimit,
		RequestTimeout: c.RequestTimeout,
		MaxRetries:     c.MaxRetries,
	}
}

// Logging derives the logger settings.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Pretty = c.LogPretty
	return cfg
}

// Environ returns the process environment as a map.
func Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
