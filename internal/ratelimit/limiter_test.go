package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBurst(t *testing.T) {
	limiter := NewLimiter(60, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("caller-a"), "request %d within burst", i)
	}
	assert.False(t, limiter.Allow("caller-a"), "burst exhausted")
}

func TestCallersAreIndependent(t *testing.T) {
	limiter := NewLimiter(60, 1)

	assert.True(t, limiter.Allow("caller-a"))
	assert.False(t, limiter.Allow("caller-a"))
	assert.True(t, limiter.Allow("caller-b"), "a different caller has its own bucket")
}
