package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter shares a sliding-window request budget across every process
// that talks to the same collaborator
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig is one collaborator's budget: Limit requests per Window
type RateLimitConfig struct {
	Key    string
	Limit  int
	Window time.Duration
}

// Collaborator budgets. NSE and the sentiment page publish no quota, so
// these stay well below what they tolerate.
var (
	NSERateLimit          = RateLimitConfig{Key: "nse", Limit: 3, Window: time.Second}
	AlphaVantageRateLimit = RateLimitConfig{Key: "alphavantage", Limit: 5, Window: time.Minute} // free tier
	SentimentRateLimit    = RateLimitConfig{Key: "sentiment", Limit: 6, Window: time.Minute}
)

// minRetry bounds how often a saturated Wait polls
const minRetry = 50 * time.Millisecond

// NewRateLimiter creates a limiter. A disabled client allows everything.
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

// Allow records one request if the window has room.
// Returns (allowed, remaining, error).
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (bool, int, error) {
	allowed, remaining, _, err := r.take(ctx, cfg)
	return allowed, remaining, err
}

// Wait blocks until the window has room or ctx ends. It sleeps until the
// oldest request in the window expires instead of polling blindly.
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		allowed, _, retryAfter, err := r.take(ctx, cfg)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}
		if retryAfter < minRetry {
			retryAfter = minRetry
		}

		t := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *RateLimiter) take(ctx context.Context, cfg RateLimitConfig) (bool, int, time.Duration, error) {
	if !r.client.Enabled() {
		return true, cfg.Limit, 0, nil
	}

	key := fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
	now := time.Now().UnixMilli()

	res, err := slidingWindow.Run(ctx, r.client.Redis(), []string{key},
		now, cfg.Window.Milliseconds(), cfg.Limit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("rate limit %s: unexpected reply %v", cfg.Key, res)
	}
	return res[0] == 1, int(res[1]), time.Duration(res[2]) * time.Millisecond, nil
}

// slidingWindow returns {allowed, remaining, retry_after_ms}.
// Members are unique so same-millisecond requests are all counted.
var slidingWindow = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = 0
if oldest[2] then
	retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)
