// Package circuitbreaker implements the circuit breaker pattern.
//
// A breaker tracks consecutive failures against one resource and trips once
// they reach a threshold, signalling the caller to recover the resource
// before relying on it again.
//
// States:
//   - Closed: Normal operation
//   - Open: Too many consecutive failures; the resource needs recovery
//   - HalfOpen: Recovered; the next outcome decides between Closed and Open
package circuitbreaker

import (
	"sync"
	"time"
)

// State represents the state of a circuit breaker.
type State int

const (
	Closed   State = iota // Normal operation
	Open                  // Failing, recovery required
	HalfOpen              // Testing if recovered
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker implements the circuit breaker pattern for a single resource.
type Breaker struct {
	mu        sync.Mutex
	state     State
	failures  int // consecutive failures
	threshold int // failures before opening
	trips     int // times the breaker opened
	openedAt  time.Time
}

// Config holds configuration for a circuit breaker.
type Config struct {
	Threshold int // Failures before circuit opens (default: 3)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Threshold: 3}
}

// New creates a new circuit breaker.
func New(cfg Config) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	return &Breaker{
		state:     Closed,
		threshold: cfg.Threshold,
	}
}

// RecordSuccess records a successful request.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = Closed
}

// RecordFailure records a failed request.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++

	if b.state == HalfOpen {
		// Failed right after recovery, go back to open
		b.open()
		return
	}

	if b.state == Closed && b.failures >= b.threshold {
		b.open()
	}
}

func (b *Breaker) open() {
	b.state = Open
	b.trips++
	b.openedAt = time.Now()
}

// Probe marks an open breaker as recovered; the next outcome is a trial.
// It reports whether the breaker was open.
func (b *Breaker) Probe() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Open {
		return false
	}
	b.state = HalfOpen
	return true
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Trips returns how many times the breaker has opened.
func (b *Breaker) Trips() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.trips
}

// OpenedAt returns when the breaker last opened; zero if it never did.
func (b *Breaker) OpenedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openedAt
}
