// Package backoff provides exponential backoff calculation and bounded polling.
package backoff

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrTimeout is returned by Poll when the condition is not met in time.
var ErrTimeout = errors.New("poll timed out")

// Config for exponential backoff. Zero values use defaults.
type Config struct {
	Initial time.Duration // default: 100ms
	Max     time.Duration // default: 5s
}

// Exponential calculates exponential backoff for a given attempt.
// Attempt 1 returns initial, attempt 2 returns initial*2, etc.
func Exponential(attempt int, cfg *Config) time.Duration {
	initial := 100 * time.Millisecond
	maxBackoff := 5 * time.Second
	if cfg != nil {
		if cfg.Initial > 0 {
			initial = cfg.Initial
		}
		if cfg.Max > 0 {
			maxBackoff = cfg.Max
		}
	}

	if attempt < 1 {
		return initial
	}
	backoff := float64(initial) * math.Pow(2.0, float64(attempt-1))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// Poll evaluates condition until it reports true, it returns an error, the
// timeout elapses or ctx is done. The wait between checks grows exponentially
// per cfg. The first check happens immediately.
//
// On timeout Poll returns ErrTimeout; on cancellation it returns ctx.Err().
func Poll(ctx context.Context, timeout time.Duration, cfg *Config, condition func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for attempt := 1; ; attempt++ {
		done, err := condition(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		wait := Exponential(attempt, cfg)
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		if wait > remaining {
			wait = remaining
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
