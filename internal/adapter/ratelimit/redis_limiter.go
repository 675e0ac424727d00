// Package ratelimit holds a Redis-backed token bucket shared by every
// process that calls the same upstream provider.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket sizes one token bucket.
type Bucket struct {
	Capacity   int64
	RefillRate float64 // tokens per second
}

// PerMinute returns a bucket that allows n calls per minute with a burst of n.
// n <= 0 yields a zero bucket, which never limits.
func PerMinute(n int) Bucket {
	if n <= 0 {
		return Bucket{}
	}
	return Bucket{Capacity: int64(n), RefillRate: float64(n) / 60.0}
}

func (b Bucket) enabled() bool { return b.Capacity > 0 && b.RefillRate > 0 }

// Numbers come back as strings: Redis truncates Lua floats to integers.
const tokenBucketScript = `
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cost = tonumber(ARGV[4])

local tokens = capacity
local last = now
local data = redis.call("HMGET", KEYS[1], "tokens", "last_refill")
if data[1] then tokens = tonumber(data[1]) end
if data[2] then last = tonumber(data[2]) end

local delta = math.max(0, now - last)
tokens = math.min(capacity, tokens + delta * rate)

local allowed = 0
local wait = 0
if tokens >= cost then
  tokens = tokens - cost
  allowed = 1
else
  wait = (cost - tokens) / rate
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "last_refill", tostring(now))
redis.call("EXPIRE", KEYS[1], math.ceil(capacity / rate) + 60)
return { allowed, tostring(wait) }
`

// RedisLimiter evaluates token buckets atomically in Redis.
// A nil *RedisLimiter allows everything.
type RedisLimiter struct {
	rdb    *redis.Client
	script *redis.Script
	now    func() time.Time

	mu      sync.RWMutex
	buckets map[string]Bucket
}

// New returns nil when rdb is nil.
func New(rdb *redis.Client, buckets map[string]Bucket) *RedisLimiter {
	if rdb == nil {
		return nil
	}
	b := make(map[string]Bucket, len(buckets))
	for k, v := range buckets {
		b[k] = v
	}
	return &RedisLimiter{rdb: rdb, script: redis.NewScript(tokenBucketScript), now: time.Now, buckets: b}
}

// SetBucket installs or replaces the bucket for key.
func (l *RedisLimiter) SetBucket(key string, b Bucket) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buckets[key] = b
}

// Allow takes cost tokens from key's bucket. Keys without a bucket are not
// limited. Redis failures fail open and are returned alongside allowed=true.
func (l *RedisLimiter) Allow(ctx context.Context, key string, cost int64) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if !ok || !b.enabled() {
		return true, 0, nil
	}
	if cost <= 0 {
		cost = 1
	}
	now := float64(l.now().UnixNano()) / 1e9
	res, err := l.script.Run(ctx, l.rdb, []string{"rate:" + key}, b.Capacity, b.RefillRate, now, cost).Slice()
	if err != nil {
		slog.Warn("rate limiter script failed", slog.String("key", key), slog.Any("error", err))
		return true, 0, fmt.Errorf("op=ratelimit.allow: %w", err)
	}
	if len(res) < 2 {
		return true, 0, fmt.Errorf("op=ratelimit.allow: unexpected script result %v", res)
	}
	allowed, _ := res[0].(int64)
	waitStr, _ := res[1].(string)
	wait, _ := strconv.ParseFloat(waitStr, 64)
	return allowed == 1, time.Duration(wait * float64(time.Second)), nil
}
