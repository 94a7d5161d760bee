package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// Retryable is implemented by errors that know whether a fresh attempt
// could help. Fetch failures carry this themselves; anything that doesn't
// is treated as permanent and propagates immediately.
type Retryable interface {
	Retryable() bool
}

// Policy wraps a fallible operation with bounded retries and exponential
// backoff. An operation is attempted up to MaxRetries+1 times; after a
// retryable failure that is not the last attempt, the policy sleeps
// BackoffFactor^attempt seconds (attempt indices are 0-based, so the first
// retry waits BackoffFactor^0) scaled by a uniform jitter factor in
// [0.5, 1.0) to avoid thundering-herd synchronization across crawlers.
type Policy struct {
	MaxRetries    int
	BackoffFactor float64
	Jitter        bool

	// Sleep is the wait primitive between attempts; nil means a real
	// context-aware sleep. Tests substitute a recorder here.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Policy with jitter enabled. Negative maxRetries is treated
// as zero; a non-positive backoff factor falls back to 2.0.
func New(maxRetries int, backoffFactor float64) *Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoffFactor <= 0 {
		backoffFactor = 2.0
	}
	return &Policy{
		MaxRetries:    maxRetries,
		BackoffFactor: backoffFactor,
		Jitter:        true,
	}
}

// Do runs op under the policy. The final failure propagates to the caller
// unmodified; non-retryable failures propagate immediately without another
// attempt.
func (p *Policy) Do(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 {
				log.Debug().Int("attempts", attempt+1).Msg("retry succeeded")
			}
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt == p.MaxRetries {
			break
		}

		backoff := p.backoff(attempt)
		log.Debug().
			Int("attempt", attempt+1).
			Int("max_retries", p.MaxRetries).
			Dur("backoff", backoff).
			Err(err).
			Msg("retrying after backoff")

		if err := p.sleep(ctx, backoff); err != nil {
			return err
		}
	}

	log.Warn().
		Int("attempts", p.MaxRetries+1).
		Err(lastErr).
		Msg("retries exhausted")
	return lastErr
}

func (p *Policy) backoff(attempt int) time.Duration {
	seconds := math.Pow(p.BackoffFactor, float64(attempt))
	if p.Jitter {
		seconds *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(seconds * float64(time.Second))
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable classifies err. Errors implementing Retryable decide for
// themselves; timeouts are always transient; everything else is permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
