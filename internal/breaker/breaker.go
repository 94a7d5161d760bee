package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrOpen is returned when the circuit is open and the wrapped operation
// was not invoked. Callers should back off at a coarser granularity than a
// single URL, e.g. abandon the site for a while.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the breaker's position in its lifecycle.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker protects a target host from sustained hammering during outages.
//
// In the closed state calls pass through and consecutive failures are
// counted; reaching the threshold opens the circuit. While open, calls fail
// fast with ErrOpen until the recovery timeout elapses, after which exactly
// one probe call is attempted. A successful probe closes the circuit, a
// failed one reopens it and restarts the recovery timer. A call arriving
// while a probe is already in flight is treated as still-open.
//
// A Breaker is session-scoped mutable state: give every crawl session its
// own instance and never share one across hosts.
type Breaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu          sync.Mutex
	state       State
	failures    int
	lastFailure time.Time
	probing     bool
}

// New creates a closed breaker. Non-positive arguments fall back to a
// threshold of 5 failures and a 60s recovery timeout.
func New(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
	}
}

// Do executes op under the breaker gate. It returns ErrOpen without invoking
// op when the circuit is open, otherwise the operation's own error, so the
// two failure kinds stay distinguishable for retry decisions.
func (b *Breaker) Do(op func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) <= b.recoveryTimeout {
			b.mu.Unlock()
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.probing = true
		log.Debug().Msg("circuit breaker half-open, probing")
	case StateHalfOpen:
		if b.probing {
			// One probe in flight at a time; everyone else sees open.
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := op()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) onSuccess() {
	b.failures = 0
	if b.state != StateClosed {
		log.Info().Msg("circuit breaker closed after successful probe")
	}
	b.state = StateClosed
}

func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailure = time.Now()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		log.Warn().Msg("circuit breaker reopened after failed probe")
		return
	}
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		log.Warn().
			Int("failures", b.failures).
			Msg("circuit breaker opened")
	}
}

// State reports the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures reports the consecutive failure count since the last success.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
