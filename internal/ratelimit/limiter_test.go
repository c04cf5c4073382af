package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterRejectsAfterLimit(t *testing.T) {
	l := New(3, time.Minute)
	now := time.Unix(0, 0)
	l.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(1), "request %d should be allowed", i)
	}
	assert.False(t, l.Allow(1), "request beyond the limit should be rejected")
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	l := New(1, time.Second)
	now := time.Unix(0, 0)
	l.SetClock(func() time.Time { return now })

	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1))

	now = now.Add(2 * time.Second)
	assert.True(t, l.Allow(1))
}

func TestLimiterIsPerUser(t *testing.T) {
	l := New(1, time.Minute)
	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(2))
	assert.False(t, l.Allow(1))
}
