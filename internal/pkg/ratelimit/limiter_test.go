package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestLimiterEnforcesWindow(t *testing.T) {
	client, _ := setupRedis(t)
	limiter := NewLimiter(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "redeem", "10.0.0.1", 3) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "redeem", "10.0.0.1", 3) {
		t.Fatal("fourth request should be denied")
	}
}

func TestLimiterIsolatesCallers(t *testing.T) {
	client, _ := setupRedis(t)
	limiter := NewLimiter(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Allow(ctx, "redeem", "10.0.0.1", 3)
	}
	if !limiter.Allow(ctx, "redeem", "10.0.0.2", 3) {
		t.Fatal("different caller should have its own window")
	}
	if !limiter.Allow(ctx, "delivery", "10.0.0.1", 3) {
		t.Fatal("different class should have its own window")
	}
}

func TestLimiterFailsOpen(t *testing.T) {
	client, mr := setupRedis(t)
	limiter := NewLimiter(client)
	mr.Close()

	if !limiter.Allow(context.Background(), "redeem", "10.0.0.1", 1) {
		t.Fatal("limiter should fail open when the store is down")
	}
}

func TestAlertGateDeduplicates(t *testing.T) {
	client, mr := setupRedis(t)
	gate := NewAlertGate(client, time.Hour)
	ctx := context.Background()

	if !gate.FirstOccurrence(ctx, "missing-discount-secret") {
		t.Fatal("first occurrence should pass")
	}
	if gate.FirstOccurrence(ctx, "missing-discount-secret") {
		t.Fatal("repeat within the window should be suppressed")
	}

	mr.FastForward(2 * time.Hour)
	if !gate.FirstOccurrence(ctx, "missing-discount-secret") {
		t.Fatal("occurrence after window expiry should pass again")
	}
}
