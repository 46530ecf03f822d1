// # internal/shared/util/limiter_test.go
package util

import (
	"context"
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	// 10 tokens per second, burst of 2
	l := NewLimiter(10, 2)

	if !l.Allow(1) {
		t.Error("expected first token to be allowed")
	}
	if !l.Allow(1) {
		t.Error("expected second token to be allowed (burst)")
	}
	if l.Allow(1) {
		t.Error("expected third token to be rejected (burst exhausted)")
	}
	if l.RetryAfter() <= 0 {
		t.Error("expected a positive retry delay once the burst is exhausted")
	}

	time.Sleep(150 * time.Millisecond)
	if !l.Allow(1) {
		t.Error("expected token to be refilled after wait")
	}
}

func TestLimiterRegistry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 100 tokens/sec, burst 10, ttl 100ms
	reg := NewLimiterRegistry(ctx, 100, 10, 100*time.Millisecond)

	l1 := reg.Get("1.1.1.1")
	l2 := reg.Get("2.2.2.2")

	if l1 == l2 {
		t.Error("expected different limiters for different IPs")
	}
	if reg.Get("1.1.1.1") != l1 {
		t.Error("expected same limiter for same IP")
	}
	if reg.Len() != 2 {
		t.Errorf("expected 2 tracked keys, got %d", reg.Len())
	}

	time.Sleep(250 * time.Millisecond)
	// Cleanup should have removed the old limiters
	if reg.Get("1.1.1.1") == l1 {
		t.Error("expected old limiter to be cleaned up and replaced")
	}
}

func TestLimiterRegistrySetLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := NewLimiterRegistry(ctx, 1, 1, time.Minute)
	l := reg.Get("a")
	if !l.Allow(1) || l.Allow(1) {
		t.Fatal("expected burst of one")
	}
	reg.SetLimit(1000, 5)
	time.Sleep(20 * time.Millisecond)
	if !l.Allow(3) {
		t.Error("expected raised burst to apply to existing limiter")
	}
}

func TestLimiter_Wait(t *testing.T) {
	l := NewLimiter(100, 1)
	l.Allow(1) // consume burst

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx, 1); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Wait returned too early")
	}
}
