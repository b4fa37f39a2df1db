package ratelimiter

import "fmt"

// RateLimiter is the interface for rate limiting.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// New builds a limiter by algorithm name. Supported: "tokenBucket",
// "leakyBucket".
func New(algorithm string, rate float64, capacity int) (RateLimiter, error) {
	switch algorithm {
	case "tokenBucket", "":
		return NewTokenBucket(rate, capacity), nil
	case "leakyBucket":
		return NewLeakyBucket(rate, capacity), nil
	default:
		return nil, fmt.Errorf("unsupported rate limiter algorithm: %q", algorithm)
	}
}
