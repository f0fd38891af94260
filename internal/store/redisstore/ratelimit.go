package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// token bucket: capacity ARGV[1], refill ARGV[2] tokens/s.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'tokens', 'updated_at')
local tokens = tonumber(bucket[1])
local updated_at = tonumber(bucket[2])

if tokens == nil or updated_at == nil then
    tokens = capacity
    updated_at = now
end

local elapsed = math.max(0, now - updated_at)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
local retry_after = 0

if tokens >= requested then
    tokens = tokens - requested
    allowed = 1
else
    retry_after = (requested - tokens) / rate
end

redis.call('HSET', key, 'tokens', tokens, 'updated_at', now)
redis.call('EXPIRE', key, 86400)

return {allowed, math.floor(tokens), math.ceil(retry_after)}
`)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int
}

type RateLimiter struct {
	store *Store
	qps   int
}

func (s *Store) RateLimiter(qps int) *RateLimiter {
	if qps <= 0 {
		qps = 5
	}
	return &RateLimiter{store: s, qps: qps}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	capacity := 2 * l.qps
	now := float64(time.Now().UnixNano()) / 1e9

	res, err := tokenBucket.Run(ctx, l.store.Client, []string{"rate_limit:" + key}, capacity, l.qps, now, 1).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script failed: %w", err)
	}
	return parseDecision(res, capacity), nil
}

func parseDecision(res any, capacity int) Decision {
	d := Decision{Limit: capacity, Remaining: capacity}
	arr, ok := res.([]any)
	if !ok || len(arr) < 3 {
		// unexpected shape: let the request through
		d.Allowed = true
		return d
	}
	if v, ok := arr[0].(int64); ok {
		d.Allowed = v == 1
	}
	if v, ok := arr[1].(int64); ok {
		d.Remaining = int(v)
	}
	if v, ok := arr[2].(int64); ok {
		d.RetryAfter = int(v)
	}
	return d
}
