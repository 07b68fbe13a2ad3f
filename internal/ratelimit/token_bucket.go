package ratelimit

import (
	"math"
	"sync"
	"time"
)

// Buckets idle long enough to refill fully carry no state; once the map
// grows past this they are swept out.
const maxIdleBuckets = 4096

// TokenBucket is an in-process, per-key limiter. Each key owns a bucket
// of capacity burst refilled at rate tokens per second; Allow spends one
// token per call.
type TokenBucket struct {
	rate  float64
	burst float64

	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether the caller behind key may proceed and, when it
// may not, how long until the next token refills.
func (t *TokenBucket) Allow(key string) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	b, ok := t.buckets[key]
	if !ok {
		if len(t.buckets) >= maxIdleBuckets {
			t.prune(now)
		}
		b = &bucket{tokens: t.burst, last: now}
		t.buckets[key] = b
	} else if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(t.burst, b.tokens+elapsed*t.rate)
		b.last = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration((1 - b.tokens) / t.rate * float64(time.Second))
	return false, wait
}

func (t *TokenBucket) prune(now time.Time) {
	full := time.Duration(t.burst / t.rate * float64(time.Second))
	for key, b := range t.buckets {
		if now.Sub(b.last) >= full {
			delete(t.buckets, key)
		}
	}
}
