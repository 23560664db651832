package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "rate_limit:"

// fixedWindowScript atomically counts a hit and reads the window TTL.
// The window starts on the first hit after expiry.
const fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {current, ttl}
`

// RedisLimiter is a fixed-window counter shared across instances.
type RedisLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter wraps an open client.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		script: redis.NewScript(fixedWindowScript),
		now:    time.Now,
	}
}

// Check counts a hit against key's current window.
func (l *RedisLimiter) Check(ctx context.Context, key string, maxAttempts int, window time.Duration) (Result, error) {
	raw, err := l.script.Run(ctx, l.rdb, []string{redisKeyPrefix + key}, window.Milliseconds()).Result()
	if err != nil {
		return Result{}, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Result{}, fmt.Errorf("unexpected rate limit script result: %v", raw)
	}

	count, _ := values[0].(int64)
	ttlMillis, _ := values[1].(int64)

	resetAt := l.now().Add(time.Duration(ttlMillis) * time.Millisecond)
	remaining := maxAttempts - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   int(count) <= maxAttempts,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
