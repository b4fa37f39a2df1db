package ratelimiter

import (
	"sync"
	"time"
)

// LeakyBucket enforces a steady outflow of requests, smoothing out bursts.
type LeakyBucket struct {
	rate       float64 // requests drained per second
	capacity   float64
	waterLevel float64
	lastLeak   time.Time
	mutex      sync.Mutex
}

// NewLeakyBucket creates a LeakyBucket.
// rate: requests processed per second. capacity: maximum burst size.
func NewLeakyBucket(rate float64, capacity int) *LeakyBucket {
	return &LeakyBucket{
		rate:     rate,
		capacity: float64(capacity),
		lastLeak: time.Now(),
	}
}

// Allow drains the bucket for the elapsed time and admits the request if the
// bucket is not full.
func (lb *LeakyBucket) Allow() bool {
	lb.mutex.Lock()
	defer lb.mutex.Unlock()

	now := time.Now()
	if leaked := now.Sub(lb.lastLeak).Seconds() * lb.rate; leaked > 0 {
		lb.waterLevel -= leaked
		if lb.waterLevel < 0 {
			lb.waterLevel = 0
		}
		lb.lastLeak = now
	}

	if lb.waterLevel < lb.capacity {
		lb.waterLevel++
		return true
	}
	return false
}
