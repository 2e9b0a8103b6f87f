package http

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	clock := time.Unix(1000, 0)
	rl := newRateLimiter(2)
	rl.now = func() time.Time { return clock }

	if !rl.allow() || !rl.allow() {
		t.Fatal("first two calls must pass")
	}
	if rl.allow() {
		t.Fatal("third call in the window must be limited")
	}

	clock = clock.Add(time.Minute)
	if !rl.allow() {
		t.Fatal("new window must reset the counter")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := newRateLimiter(0)
	for i := 0; i < 1000; i++ {
		if !rl.allow() {
			t.Fatal("disabled limiter must always allow")
		}
	}
	var nilLimiter *rateLimiter
	if !nilLimiter.allow() {
		t.Fatal("nil limiter must allow")
	}
}
