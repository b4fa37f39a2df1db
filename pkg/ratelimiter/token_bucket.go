package ratelimiter

import (
	"sync"
	"time"
)

// TokenBucket allows bursts of requests up to the bucket's capacity, with
// tokens refilled at a steady rate.
type TokenBucket struct {
	rate     float64 // tokens generated per second
	capacity float64
	tokens   float64
	lastFill time.Time
	mutex    sync.Mutex
}

// NewTokenBucket creates a TokenBucket that starts full.
func NewTokenBucket(rate float64, capacity int) *TokenBucket {
	return &TokenBucket{
		rate:     rate,
		capacity: float64(capacity),
		tokens:   float64(capacity),
		lastFill: time.Now(),
	}
}

// Allow refills the bucket for the elapsed time and consumes one token if
// available.
func (tb *TokenBucket) Allow() bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	now := time.Now()
	if elapsed := now.Sub(tb.lastFill); elapsed > 0 {
		tb.tokens += elapsed.Seconds() * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastFill = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}
