package http

import "time"

// rateLimiter is a fixed-window counter owned by one connection's reader.
type rateLimiter struct {
	limit  int
	window time.Duration
	count  int
	start  time.Time
	now    func() time.Time
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: time.Minute,
		now:    time.Now,
	}
}

func (r *rateLimiter) allow() bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	t := r.now()
	if t.Sub(r.start) >= r.window {
		r.start = t
		r.count = 0
	}
	r.count++
	return r.count <= r.limit
}
