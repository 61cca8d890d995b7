package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// userLimiter hands out one token bucket per caller key.
type userLimiter struct {
	limit rate.Limit
	burst int

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	lastSeen  map[string]time.Time
	lastSweep time.Time
	now       func() time.Time
}

// newUserLimiter allows perMinute requests per key with the given burst. A
// non-positive perMinute disables limiting and returns nil.
func newUserLimiter(perMinute, burst int) *userLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &userLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (l *userLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, seen := range l.lastSeen {
			if now.Sub(seen) > limiterIdleTTL {
				delete(l.limiters, k)
				delete(l.lastSeen, k)
			}
		}
		l.lastSweep = now
	}

	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	l.lastSeen[key] = now
	return limiter.AllowN(now, 1)
}

func (l *userLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
