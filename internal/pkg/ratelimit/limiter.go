// Package ratelimit provides atomic per-endpoint-class rate limiting backed
// by Redis. A Lua script does the check-and-increment in one round trip, so
// concurrent requests can't slip past the limit between GET and INCR.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/referlabs/referral-engine/internal/pkg/logger"
)

// Limiter enforces fixed-window per-minute limits keyed by endpoint class
// and caller identity.
type Limiter struct {
	redis  *redis.Client
	script *redis.Script
}

// Fixed-window counter: increment only when under the limit, set the TTL on
// first touch so the window expires on its own.
const windowLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = tonumber(redis.call("GET", key) or "0")

if current + 1 > limit then
    return {0, current}
end

local newVal = redis.call("INCRBY", key, 1)
if newVal == 1 then
    redis.call("EXPIRE", key, ttl)
end

return {1, newVal}
`

// NewLimiter creates a limiter with a pre-compiled Lua script.
func NewLimiter(redisClient *redis.Client) *Limiter {
	return &Limiter{
		redis:  redisClient,
		script: redis.NewScript(windowLuaScript),
	}
}

// Allow reports whether one more request in the named class is within the
// per-minute limit for this caller. Redis outages fail open: attribution
// endpoints must keep working when the limiter store is down.
func (l *Limiter) Allow(ctx context.Context, class, caller string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	window := time.Now().UTC().Unix() / 60
	key := fmt.Sprintf("ratelimit:%s:%s:%d", class, caller, window)

	result, err := l.script.Run(ctx, l.redis, []string{key}, perMinute, 120).Result()
	if err != nil {
		logger.Warn("rate limiter unavailable, failing open", "class", class, "error", err)
		return true
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 1 {
		return true
	}
	allowed, _ := values[0].(int64)
	return allowed == 1
}
