package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	clock := time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return clock }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of two should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("keys must not share a bucket")
	}

	clock = clock.Add(time.Second)
	if !l.Allow("a") || l.Allow("a") {
		t.Fatal("one token should refill per second")
	}
}

func TestLimiterDropsIdleBuckets(t *testing.T) {
	clock := time.Date(2024, 4, 30, 9, 0, 0, 0, time.UTC)
	l := PerMinute(60)
	l.now = func() time.Time { return clock }
	l.Allow("a")
	clock = clock.Add(2 * time.Minute)
	l.Allow("b")
	if _, ok := l.buckets["a"]; ok {
		t.Fatal("idle bucket kept")
	}
}
