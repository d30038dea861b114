package cli

import (
	"context"
	"fmt"

	"github.com/Sternrassler/artic-browser/pkg/client"
	"github.com/Sternrassler/artic-browser/pkg/config"
	"github.com/Sternrassler/artic-browser/pkg/logging"
	"github.com/Sternrassler/artic-browser/pkg/session"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func setupLogging(cfg config.Config, o *IO) zerolog.Logger {
	lc := cfg.Logging()
	lc.Output = o.errOut
	logging.Setup(lc)
	return logging.NewLogger("cli")
}

// backend holds the wired dependencies shared by the commands.
type backend struct {
	api   *client.Client
	redis *redis.Client
	store session.Store
}

// newBackend connects to Redis when configured and builds the API client
// and session store.
func newBackend(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*backend, error) {
	b := &backend{}

	if cfg.RedisAddr != "" {
		b.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("redis", cfg.RedisAddr).Msg("Connected to Redis")
		b.store = session.NewRedisStore(b.redis, cfg.SessionTTL)
	} else {
		b.store = session.NewMemoryStore(cfg.SessionCacheSize, cfg.SessionTTL)
	}

	cc := cfg.ClientConfig()
	cc.Redis = b.redis
	api, err := client.New(cc)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("create api client: %w", err)
	}
	b.api = api

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Str("user_agent", cfg.UserAgent).
		Int("rows", cfg.PageSize).
		Int("max_retries", cfg.MaxRetries).
		Bool("rate_limited", api.RateLimiter().Enabled()).
		Msg("API client ready")

	return b, nil
}

// Close releases connections.
func (b *backend) Close() {
	if b.api != nil {
		b.api.Close()
	}
	if b.redis != nil {
		b.redis.Close()
	}
}
