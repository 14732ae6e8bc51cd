package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Window(t *testing.T) {
	s := &Server{}
	rl := s.newRateLimiter(2, time.Minute)
	defer rl.stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"), "limits are per client")

	now = now.Add(61 * time.Second)
	assert.True(t, rl.allow("1.1.1.1"), "window resets")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	s := &Server{}
	rl := s.newRateLimiter(1, time.Minute)
	rl.stop()
	rl.stop()
}
