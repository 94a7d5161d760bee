package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"
)

type transientErr struct{ msg string }

func (e *transientErr) Error() string   { return e.msg }
func (e *transientErr) Retryable() bool { return true }

type permanentErr struct{ msg string }

func (e *permanentErr) Error() string   { return e.msg }
func (e *permanentErr) Retryable() bool { return false }

// recordedPolicy returns a policy whose sleeps are captured instead of
// performed, so backoff arithmetic can be asserted without wall-clock waits.
func recordedPolicy(maxRetries int, factor float64, jitter bool) (*Policy, *[]time.Duration) {
	var slept []time.Duration
	p := New(maxRetries, factor)
	p.Jitter = jitter
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return p, &slept
}

func TestEventualSuccessReturnsNil(t *testing.T) {
	p, slept := recordedPolicy(3, 2.0, true)

	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		if calls <= 3 {
			return &transientErr{fmt.Sprintf("attempt %d", calls)}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("got %v, want success after retries", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}

	// Jittered backoff must stay within [0.5, 1.0) * factor^attempt seconds.
	want := []float64{1, 2, 4}
	if len(*slept) != len(want) {
		t.Fatalf("sleeps = %d, want %d", len(*slept), len(want))
	}
	var total time.Duration
	for i, d := range *slept {
		lo := time.Duration(0.5 * want[i] * float64(time.Second))
		hi := time.Duration(want[i] * float64(time.Second))
		if d < lo || d > hi {
			t.Errorf("sleep %d = %v, want in [%v, %v]", i, d, lo, hi)
		}
		total += d
	}
	floor := time.Duration(0.5 * (1 + 2 + 4) * float64(time.Second))
	if total < floor {
		t.Errorf("total backoff %v below jitter floor %v", total, floor)
	}
}

func TestExhaustionPropagatesLastErrorUnmodified(t *testing.T) {
	p, _ := recordedPolicy(2, 2.0, false)

	last := &transientErr{"final failure"}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return last
	})
	if calls != 3 {
		t.Errorf("calls = %d, want exactly max_retries+1 = 3", calls)
	}
	if err != last {
		t.Errorf("got %v, want the last error unwrapped and unmodified", err)
	}
}

func TestNonRetryablePropagatesImmediately(t *testing.T) {
	p, slept := recordedPolicy(5, 2.0, false)

	perm := &permanentErr{"bad request"}
	calls := 0
	err := p.Do(context.Background(), func() error {
		calls++
		return perm
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, perm) {
		t.Errorf("got %v, want the permanent error", err)
	}
	if len(*slept) != 0 {
		t.Errorf("no backoff expected, slept %v", *slept)
	}
}

func TestBackoffWithoutJitterIsExact(t *testing.T) {
	p, slept := recordedPolicy(3, 3.0, false)

	p.Do(context.Background(), func() error { return &transientErr{"x"} })

	for i, d := range *slept {
		want := time.Duration(math.Pow(3, float64(i)) * float64(time.Second))
		if d != want {
			t.Errorf("sleep %d = %v, want %v", i, d, want)
		}
	}
}

func TestContextCancellationStopsRetrying(t *testing.T) {
	p := New(5, 2.0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := p.Do(ctx, func() error {
		calls++
		return &transientErr{"x"}
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancelled before first backoff elapsed)", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil must not be retryable")
	}
	if !IsRetryable(context.DeadlineExceeded) {
		t.Error("deadline exceeded must be retryable")
	}
	if !IsRetryable(fmt.Errorf("wrap: %w", &transientErr{"x"})) {
		t.Error("wrapped transient errors must stay retryable")
	}
	if IsRetryable(errors.New("unknown")) {
		t.Error("unknown errors default to permanent")
	}
}
