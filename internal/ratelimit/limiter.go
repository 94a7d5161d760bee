package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound requests for a single crawl session using the
// token bucket algorithm: the bucket holds up to burst tokens and is refilled
// continuously at requestsPerSecond, so waits are computed from elapsed
// wall-clock time rather than a fixed tick.
//
// Each session must own its Limiter. Sharing one across sessions targeting
// different hosts would couple their throughput characteristics.
type Limiter struct {
	bucket *rate.Limiter
}

// New creates a session rate limiter. Non-positive arguments fall back to
// a conservative 1 req/s with a burst of 5.
func New(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		bucket: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a token is available, then consumes it. The only failure
// mode is context cancellation while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return l.bucket.Wait(ctx)
}

// Allow reports whether a request could proceed right now without blocking,
// consuming a token if so.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// Limit returns the configured refill rate in requests per second.
func (l *Limiter) Limit() float64 {
	return float64(l.bucket.Limit())
}

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int {
	return l.bucket.Burst()
}
