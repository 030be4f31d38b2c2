package server

import (
	"testing"
	"time"
)

func TestRateLimiterPerKey(t *testing.T) {
	now := time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(2, func() time.Time { return now })

	if !limiter.Allow("a") || !limiter.Allow("a") {
		t.Fatalf("expected burst of 2 to be allowed")
	}
	if limiter.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !limiter.Allow("b") {
		t.Fatalf("expected other key to be unaffected")
	}
	now = now.Add(30 * time.Second)
	if !limiter.Allow("a") {
		t.Fatalf("expected a token to refill after 30s")
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	now := time.Date(2026, time.October, 14, 8, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(5, func() time.Time { return now })
	limiter.Allow("a")
	now = now.Add(time.Hour)
	limiter.Allow("b")
	if _, ok := limiter.visitors["a"]; ok {
		t.Fatalf("expected idle visitor to be removed")
	}
}
