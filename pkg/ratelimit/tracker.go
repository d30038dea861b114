package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	articRateLimitUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "artic_rate_limit_used",
		Help: "Requests counted in the current rate limit window",
	})

	articRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the budget was spent",
	})

	articRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "artic_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the budget is nearly spent",
	})
)

// DefaultRetryAfter is used when a 429 response carries no usable Retry-After.
const DefaultRetryAfter = 60 * time.Second

// Tracker counts requests against the upstream budget and gates new ones.
// A Tracker without a Redis client allows every request.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	limit         int
	window        time.Duration
	throttleDelay time.Duration
}

// NewTracker creates a new rate limit tracker.
// A limit <= 0 falls back to DefaultRequestsPerMinute.
func NewTracker(redisClient *redis.Client, limit int, logger zerolog.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultRequestsPerMinute
	}
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		limit:         limit,
		window:        DefaultWindow,
		throttleDelay: time.Second,
	}
}

// Enabled reports whether the tracker has a backing store.
func (t *Tracker) Enabled() bool {
	return t != nil && t.redis != nil
}

// Limit returns the number of requests allowed per window.
func (t *Tracker) Limit() int {
	return t.limit
}

func (t *Tracker) windowStart(now time.Time) time.Time {
	return now.Truncate(t.window)
}

func (t *Tracker) windowKey(now time.Time) string {
	return RedisKeyWindowPrefix + strconv.FormatInt(t.windowStart(now).Unix(), 10)
}

// GetState reads the current window from Redis without counting a request.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	now := time.Now()
	state := &RateLimitState{
		Limit:         t.limit,
		WindowResetAt: t.windowStart(now).Add(t.window),
	}
	if !t.Enabled() {
		return state, nil
	}

	used, err := t.redis.Get(ctx, t.windowKey(now)).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get window count: %w", err)
	}
	state.Used = used

	blockedUntil, err := t.blockedUntil(ctx)
	if err != nil {
		return nil, err
	}
	state.BlockedUntil = blockedUntil

	return state, nil
}

func (t *Tracker) blockedUntil(ctx context.Context) (time.Time, error) {
	ts, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get blocked until: %w", err)
	}
	return time.Unix(ts, 0), nil
}

// ShouldAllowRequest counts one request and decides whether it may be sent.
// Returns false if the budget is spent or the server asked us to back off.
// Returns true after a short pause if the budget is nearly spent.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	if !t.Enabled() {
		return true, nil
	}

	blockedUntil, err := t.blockedUntil(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}
	if time.Now().Before(blockedUntil) {
		t.logger.Error().
			Time("blocked_until", blockedUntil).
			Msg("Upstream asked to back off - blocking request")
		articRateLimitBlocksTotal.Inc()
		return false, nil
	}

	now := time.Now()
	key := t.windowKey(now)

	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*t.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("count request in redis: %w", err)
	}

	state := &RateLimitState{
		Used:          int(incr.Val()),
		Limit:         t.limit,
		WindowResetAt: t.windowStart(now).Add(t.window),
	}
	articRateLimitUsed.Set(float64(state.Used))

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("used", state.Used).
			Int("limit", state.Limit).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Request budget spent - blocking request")
		articRateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("used", state.Used).
			Int("limit", state.Limit).
			Msg("Request budget nearly spent - throttling request")
		articRateLimitThrottlesTotal.Inc()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// UpdateFromHeaders records a server-side back-off.
// Only 429 responses are considered; Retry-After may be seconds or an HTTP date.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, statusCode int, headers http.Header) error {
	if statusCode != http.StatusTooManyRequests || !t.Enabled() {
		return nil
	}

	wait := parseRetryAfter(headers.Get("Retry-After"))
	until := time.Now().Add(wait)

	if err := t.redis.Set(ctx, RedisKeyBlockedUntil, until.Unix(), wait).Err(); err != nil {
		return fmt.Errorf("store blocked until in redis: %w", err)
	}

	t.logger.Warn().
		Dur("retry_after", wait).
		Time("blocked_until", until).
		Msg("Upstream rate limited - backing off")

	return nil
}

// parseRetryAfter converts a Retry-After value into a wait duration.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return DefaultRetryAfter
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return DefaultRetryAfter
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return DefaultRetryAfter
}
