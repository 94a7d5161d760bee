package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestWaitPacesRequests(t *testing.T) {
	// 2 req/s with a burst of 1: five consecutive waits must take at least
	// four refill intervals of 0.5s each.
	l := New(2, 1)

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 2*time.Second {
		t.Errorf("five calls finished in %v, want >= 2s", elapsed)
	}
}

func TestBurstAllowsImmediateCalls(t *testing.T) {
	l := New(1, 3)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("burst of 3 should not block, took %v", elapsed)
	}

	if l.Allow() {
		t.Error("bucket should be drained after the burst")
	}
}

func TestWaitRespectsContext(t *testing.T) {
	l := New(0.1, 1)
	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("expected context error while waiting for a 10s refill")
	}
}

func TestDefaults(t *testing.T) {
	l := New(0, 0)
	if l.Limit() != 1.0 {
		t.Errorf("default rate = %v, want 1.0", l.Limit())
	}
	if l.Burst() != 5 {
		t.Errorf("default burst = %d, want 5", l.Burst())
	}
}
