package ws

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func bucketCount(l *ConnectionRateLimiter) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func TestConnectionRateLimiter_BurstThenReject(t *testing.T) {
	l := NewConnectionRateLimiter(clockwork.NewFakeClock(), 1, 3)

	for i := 0; i < 3; i++ {
		if !l.Allow("10.0.0.1") {
			t.Fatalf("connection %d rejected within burst", i)
		}
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("expected connection beyond burst to be rejected")
	}
}

func TestConnectionRateLimiter_RefillsWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionRateLimiter(clock, 1, 1)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first connection rejected")
	}
	if l.Allow("10.0.0.1") {
		t.Fatal("second connection in the same instant should be rejected")
	}

	clock.Advance(time.Second)
	if !l.Allow("10.0.0.1") {
		t.Fatal("bucket should refill after one second")
	}
}

func TestConnectionRateLimiter_PerIP(t *testing.T) {
	l := NewConnectionRateLimiter(clockwork.NewFakeClock(), 1, 1)

	if !l.Allow("10.0.0.1") {
		t.Fatal("first IP rejected")
	}
	if !l.Allow("10.0.0.2") {
		t.Fatal("second IP should have its own bucket")
	}
	if got := bucketCount(l); got != 2 {
		t.Fatalf("buckets = %d, want 2", got)
	}
}

func TestConnectionRateLimiter_MinimumBurst(t *testing.T) {
	l := NewConnectionRateLimiter(clockwork.NewFakeClock(), 1, 0)
	if !l.Allow("10.0.0.1") {
		t.Fatal("burst below one should be raised to one")
	}
}

func TestConnectionRateLimiter_SweepDropsIdle(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionRateLimiter(clock, 1, 1)
	l.Allow("10.0.0.1")

	clock.Advance(limiterIdleTTL + time.Second)
	l.Allow("10.0.0.2")

	if got := bucketCount(l); got != 1 {
		t.Fatalf("buckets = %d, want 1 after sweep", got)
	}
}

func TestConnectionRateLimiter_RecentBucketSurvivesSweep(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewConnectionRateLimiter(clock, 1, 1)
	l.Allow("10.0.0.1")

	clock.Advance(limiterSweepEvery)
	l.Allow("10.0.0.2")

	if got := bucketCount(l); got != 2 {
		t.Fatalf("buckets = %d, want 2", got)
	}
}
