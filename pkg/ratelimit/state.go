// Package ratelimit keeps the client inside the request budget published by
// the artworks API (requests per minute per client). The budget is counted in
// Redis so that several processes sharing one egress address share one count.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyWindowPrefix = "artic:rate_limit:window:"
	RedisKeyBlockedUntil = "artic:rate_limit:blocked_until"
)

// Budget defaults.
const (
	// DefaultRequestsPerMinute is the limit documented by the upstream API.
	DefaultRequestsPerMinute = 60

	// DefaultWindow is the length of one counting window.
	DefaultWindow = time.Minute

	// WarningRatio is the share of the budget after which requests are throttled.
	WarningRatio = 0.8
)

// RateLimitState is a snapshot of the current window.
type RateLimitState struct {
	// Used is the number of requests counted in the current window.
	Used int `json:"used"`

	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// WindowResetAt is when the current window ends.
	WindowResetAt time.Time `json:"window_reset_at"`

	// BlockedUntil is set after the upstream answered 429 with Retry-After.
	BlockedUntil time.Time `json:"blocked_until"`
}

// Remaining returns how many requests are left in the window.
func (s *RateLimitState) Remaining() int {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// IsBlockedByServer reports whether a Retry-After block is still active.
func (s *RateLimitState) IsBlockedByServer() bool {
	return time.Now().Before(s.BlockedUntil)
}

// NeedsCriticalBlock returns true if the request must not be sent.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Used > s.Limit || s.IsBlockedByServer()
}

// NeedsThrottling returns true if the request may be sent after a pause.
func (s *RateLimitState) NeedsThrottling() bool {
	if s.NeedsCriticalBlock() {
		return false
	}
	return float64(s.Used) >= float64(s.Limit)*WarningRatio
}

// IsHealthy reports whether requests currently go through without delay.
func (s *RateLimitState) IsHealthy() bool {
	return !s.NeedsCriticalBlock() && !s.NeedsThrottling()
}

// TimeUntilReset returns the duration until requests are allowed again.
// Returns 0 if nothing is blocking.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	until := s.WindowResetAt
	if s.BlockedUntil.After(until) {
		until = s.BlockedUntil
	}
	duration := time.Until(until)
	if duration < 0 {
		return 0
	}
	return duration
}
