package signal

import (
	"sync"
	"time"
)

// RateLimiter is a sliding window limit on relayed frames per identity.
type RateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(identity string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)
	attempts := rl.history[identity]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[identity] = fresh
		return false
	}
	rl.history[identity] = append(fresh, now)
	return true
}

func (rl *RateLimiter) Forget(identity string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.history, identity)
	rl.mu.Unlock()
}
