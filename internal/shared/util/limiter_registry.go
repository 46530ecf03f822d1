// # internal/shared/util/limiter_registry.go
package util

import (
	"context"
	"sync"
	"time"
)

// LimiterRegistry manages a collection of limiters, typically one per client IP.
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     float64
	burst    int
	ttl      time.Duration
}

type limiterEntry struct {
	limiter  *Limiter
	lastUsed time.Time
}

// NewLimiterRegistry creates a new registry whose idle entries are evicted
// until ctx is done.
// rate: tokens per second.
// burst: burst size.
// ttl: how long to keep a limiter in memory after its last use.
func NewLimiterRegistry(ctx context.Context, r float64, b int, ttl time.Duration) *LimiterRegistry {
	reg := &LimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
		ttl:      ttl,
	}
	go reg.cleanupLoop(ctx)
	return reg
}

// Get returns the limiter for the given key (e.g., client IP).
func (r *LimiterRegistry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: NewLimiter(r.rate, r.burst),
		}
		r.limiters[key] = entry
	}
	entry.lastUsed = time.Now()
	return entry.limiter
}

// SetLimit applies a new rate to existing and future limiters.
func (r *LimiterRegistry) SetLimit(rate float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rate, r.burst = rate, burst
	for _, entry := range r.limiters {
		entry.limiter.SetLimit(rate, burst)
	}
}

// Len returns the number of tracked keys.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *LimiterRegistry) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup()
		}
	}
}

func (r *LimiterRegistry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, entry := range r.limiters {
		if now.Sub(entry.lastUsed) > r.ttl {
			delete(r.limiters, key)
		}
	}
}
