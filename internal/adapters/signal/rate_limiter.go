package signal

import (
	"sync"

	"github.com/dkeye/talkabout/internal/core"
	"golang.org/x/time/rate"
)

// SignalRateLimiter throttles inbound messages per client token, so a
// reconnect does not reset the budget.
type SignalRateLimiter struct {
	mu       sync.Mutex
	limiters map[core.SessionID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewSignalRateLimiter returns a limiter allowing limit messages per second
// with the given burst. A non-positive limit disables throttling.
func NewSignalRateLimiter(limit rate.Limit, burst int) *SignalRateLimiter {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &SignalRateLimiter{
		limiters: make(map[core.SessionID]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (rl *SignalRateLimiter) Allow(sid core.SessionID) bool {
	rl.mu.Lock()
	l, ok := rl.limiters[sid]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[sid] = l
	}
	rl.mu.Unlock()
	return l.Allow()
}

func (rl *SignalRateLimiter) Forget(sid core.SessionID) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.limiters, sid)
}
