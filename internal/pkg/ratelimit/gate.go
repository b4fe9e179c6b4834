package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AlertGate deduplicates operational alerts across instances using SET NX
// with a TTL. The first caller per key and window wins; everyone else is
// suppressed until the window expires.
type AlertGate struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewAlertGate creates an alert deduplication gate.
func NewAlertGate(redisClient *redis.Client, ttl time.Duration) *AlertGate {
	return &AlertGate{redis: redisClient, ttl: ttl}
}

// FirstOccurrence reports whether this is the first sighting of the key
// within the window. Redis errors report true so a broken gate never
// swallows an alert.
func (g *AlertGate) FirstOccurrence(ctx context.Context, key string) bool {
	ok, err := g.redis.SetNX(ctx, fmt.Sprintf("alert:%s", key), "1", g.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
