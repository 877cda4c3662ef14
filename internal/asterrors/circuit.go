package asterrors

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Execute when the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState is one of closed, open, half-open.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
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

// CircuitBreaker protects a flaky dependency by failing fast once it has
// failed consecutively FailureThreshold times, until ResetTimeout elapses
// and a single probe is allowed through.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
	probing     bool
}

// NewCircuitBreaker creates a breaker with the given name and defaults
// (5 failures, 30s reset timeout).
func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:             name,
		failureThreshold: 5,
		resetTimeout:     30 * time.Second,
		state:            StateClosed,
	}
}

// WithFailureThreshold sets the consecutive-failure threshold to open.
func (cb *CircuitBreaker) WithFailureThreshold(n int) *CircuitBreaker {
	cb.failureThreshold = n
	return cb
}

// WithResetTimeout sets the duration the breaker stays open before
// allowing a probe.
func (cb *CircuitBreaker) WithResetTimeout(d time.Duration) *CircuitBreaker {
	cb.resetTimeout = d
	return cb
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// State returns the current state, accounting for the open->half-open
// transition once resetTimeout has elapsed.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

func (cb *CircuitBreaker) currentStateLocked() CircuitState {
	if cb.state == StateOpen && time.Since(cb.lastFailure) > cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Execute runs fn through the breaker. While open, it returns
// ErrCircuitOpen without calling fn. A failure in half-open reopens the
// breaker; a success in half-open or closed clears the failure count.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	state := cb.currentStateLocked()
	if state == StateOpen || (state == StateHalfOpen && cb.probing) {
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	if state == StateHalfOpen {
		cb.probing = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if state == StateHalfOpen {
		cb.probing = false
	}
	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if state == StateHalfOpen || cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
		}
		return err
	}

	cb.failures = 0
	cb.state = StateClosed
	return nil
}
