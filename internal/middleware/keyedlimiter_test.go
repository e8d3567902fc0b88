package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	k := newKeyedLimiter()
	// perMinute=60 -> burst capacity 60, refill 1/s.
	for i := 0; i < 60; i++ {
		assert.True(t, k.allow("key-a", 60), "request %d should be allowed within burst", i)
	}
	assert.False(t, k.allow("key-a", 60), "61st immediate request should be rate limited")
}

func TestKeyedLimiterTracksKeysIndependently(t *testing.T) {
	k := newKeyedLimiter()
	for i := 0; i < 5; i++ {
		assert.True(t, k.allow("key-a", 5))
	}
	assert.False(t, k.allow("key-a", 5))
	// a different key has its own independent bucket.
	assert.True(t, k.allow("key-b", 5))
}

func TestKeyedLimiterReusesBucketAcrossCalls(t *testing.T) {
	k := newKeyedLimiter()
	k.allow("key-a", 10)
	k.mu.Lock()
	_, ok := k.limiters["key-a"]
	k.mu.Unlock()
	assert.True(t, ok)
}
