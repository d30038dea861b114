package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 30 * time.Minute

// RedisStore keeps sessions as JSON values in Redis.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store. ttl <= 0 uses DefaultTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: log.With().Str("component", "session").Logger(),
	}
}

// Get retrieves a session by ID.
// Returns ErrNotFound if the key doesn't exist or has expired.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.redis.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			StoreMisses.WithLabelValues("redis").Inc()
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		StoreErrors.WithLabelValues("redis", "get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		StoreErrors.WithLabelValues("redis", "get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if s.Selection == nil {
		s.Selection = artwork.Selection{}
	}

	StoreHits.WithLabelValues("redis").Inc()
	return &s, nil
}

// Save stores the session and resets its TTL.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ID == "" {
		StoreErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("session must have an id")
	}

	data, err := json.Marshal(s)
	if err != nil {
		StoreErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := r.redis.Set(ctx, Key(s.ID), data, r.ttl).Err(); err != nil {
		StoreErrors.WithLabelValues("redis", "save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	r.logger.Debug().
		Str("session", s.ID).
		Int("selected", len(s.Selection)).
		Int("bytes", len(data)).
		Msg("Session saved")

	return nil
}

// Delete removes a session.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.redis.Del(ctx, Key(id)).Err(); err != nil {
		StoreErrors.WithLabelValues("redis", "delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// TTL returns the remaining lifetime of a stored session.
func (r *RedisStore) TTL(ctx context.Context, id string) (time.Duration, error) {
	ttl, err := r.redis.TTL(ctx, Key(id)).Result()
	if err != nil {
		return 0, fmt.Errorf("redis ttl: %w", err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ttl, nil
}
