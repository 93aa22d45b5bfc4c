package tools

import (
	"sync"
	"time"
)

const defaultCallsPerMinute = 10

// RateLimiter bounds outbound search requests to a fixed number per sliding
// minute. Wait blocks until a slot is free, then records the call.
type RateLimiter struct {
	mu       sync.Mutex
	maxCalls int
	calls    []time.Time

	// Injected for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter builds a limiter allowing maxCallsPerMinute requests per
// minute. Non-positive values fall back to the default of 10.
func NewRateLimiter(maxCallsPerMinute int) *RateLimiter {
	if maxCallsPerMinute <= 0 {
		maxCallsPerMinute = defaultCallsPerMinute
	}
	return &RateLimiter{
		maxCalls: maxCallsPerMinute,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Wait blocks until the caller may issue another request. A nil limiter
// never blocks.
func (r *RateLimiter) Wait() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.prune(now)

	if len(r.calls) >= r.maxCalls {
		wait := time.Minute - now.Sub(r.calls[0])
		if wait > 0 {
			r.sleep(wait)
			now = r.now()
			r.prune(now)
		}
	}
	r.calls = append(r.calls, now)
}

// prune drops calls older than one minute. Caller holds the lock.
func (r *RateLimiter) prune(now time.Time) {
	kept := r.calls[:0]
	for _, t := range r.calls {
		if now.Sub(t) < time.Minute {
			kept = append(kept, t)
		}
	}
	r.calls = kept
}
