package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketExhaustion(t *testing.T) {
	bucket := NewTokenBucket(3, 1, time.Hour)

	for i := 0; i < 3; i++ {
		allowed, wait := bucket.Allow()
		assert.True(t, allowed, "token %d should be available", i)
		assert.Zero(t, wait)
	}

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucketRefill(t *testing.T) {
	bucket := NewTokenBucket(1, 1, 10*time.Millisecond)

	allowed, _ := bucket.Allow()
	assert.True(t, allowed)
	allowed, _ = bucket.Allow()
	assert.False(t, allowed)

	time.Sleep(15 * time.Millisecond)
	allowed, _ = bucket.Allow()
	assert.True(t, allowed, "bucket should refill after the interval")
}

func TestRateLimiterPerUserPerAction(t *testing.T) {
	rl := NewRateLimiter()

	// create_chat allows 10 before refusing.
	for i := 0; i < 10; i++ {
		allowed, _ := rl.Allow("u1", "create_chat")
		assert.True(t, allowed)
	}
	allowed, _ := rl.Allow("u1", "create_chat")
	assert.False(t, allowed)

	// Other users and other actions have their own buckets.
	allowed, _ = rl.Allow("u2", "create_chat")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("u1", "send_message")
	assert.True(t, allowed)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter()
	rl.Allow("u1", "send_message")

	rl.buckets["u1:send_message"].lastRefill = time.Now().Add(-2 * time.Hour)
	rl.Cleanup()

	assert.Empty(t, rl.buckets)
}
