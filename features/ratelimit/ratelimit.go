// Package ratelimit enforces a per-(scope, client) request budget using
// token buckets.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter hands out one token bucket per key and reports how long a rejected
// caller should wait. Safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// New builds a Limiter allowing requests per window for each distinct key.
func New(requests int, window time.Duration) *Limiter {
	if requests <= 0 {
		requests = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(requests) / window.Seconds()),
		burst:   requests,
	}
}

// Allow reports whether the request identified by key may proceed. When it
// may not, retryAfter holds the suggested wait in whole seconds (at least 1).
func (l *Limiter) Allow(key string) (ok bool, retryAfter int) {
	l.mu.Lock()
	bucket, found := l.buckets[key]
	if !found {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	reservation := bucket.Reserve()
	delay := reservation.Delay()
	if delay == 0 {
		return true, 0
	}
	reservation.Cancel()
	return false, int(math.Ceil(delay.Seconds()))
}
