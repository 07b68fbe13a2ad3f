package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(at *time.Time) func() time.Time {
	return func() time.Time { return *at }
}

func TestTokenBucket_BurstThenDeny(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(1, 3)
	tb.now = fixedClock(&now)

	for i := 0; i < 3; i++ {
		allowed, _ := tb.Allow("client")
		require.True(t, allowed, "call %d should pass within the burst", i+1)
	}

	allowed, wait := tb.Allow("client")
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucket_Refills(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(0.5, 1)
	tb.now = fixedClock(&now)

	allowed, _ := tb.Allow("client")
	require.True(t, allowed)

	allowed, wait := tb.Allow("client")
	require.False(t, allowed)
	assert.InDelta(t, 2.0, wait.Seconds(), 0.01)

	now = now.Add(2 * time.Second)
	allowed, _ = tb.Allow("client")
	assert.True(t, allowed)
}

func TestTokenBucket_KeysAreIndependent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(1, 1)
	tb.now = fixedClock(&now)

	allowed, _ := tb.Allow("a")
	require.True(t, allowed)
	allowed, _ = tb.Allow("a")
	require.False(t, allowed)

	allowed, _ = tb.Allow("b")
	assert.True(t, allowed)
}

func TestTokenBucket_PruneDropsRefilledBuckets(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tb := NewTokenBucket(1, 2)
	tb.now = fixedClock(&now)

	tb.Allow("stale")
	tb.Allow("fresh")

	now = now.Add(5 * time.Second)
	tb.Allow("fresh")

	tb.mu.Lock()
	tb.prune(now.Add(time.Second))
	_, staleKept := tb.buckets["stale"]
	_, freshKept := tb.buckets["fresh"]
	tb.mu.Unlock()

	assert.False(t, staleKept)
	assert.True(t, freshKept)
}

func TestNewTokenBucket_FloorsBadInputs(t *testing.T) {
	tb := NewTokenBucket(-1, 0)
	assert.Equal(t, 1.0, tb.rate)
	assert.Equal(t, 1.0, tb.burst)
}
