package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestExponential_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1600 * time.Millisecond},
		{6, 3200 * time.Millisecond},
		{7, 5 * time.Second}, // capped at max
		{8, 5 * time.Second}, // capped at max
	}

	for _, tt := range tests {
		got := Exponential(tt.attempt, nil)
		if got != tt.want {
			t.Errorf("Exponential(%d, nil) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_CustomConfig(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Initial: 50 * time.Millisecond,
		Max:     500 * time.Millisecond,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 50 * time.Millisecond},
		{2, 100 * time.Millisecond},
		{3, 200 * time.Millisecond},
		{4, 400 * time.Millisecond},
		{5, 500 * time.Millisecond}, // capped at max
		{6, 500 * time.Millisecond}, // capped at max
	}

	for _, tt := range tests {
		got := Exponential(tt.attempt, cfg)
		if got != tt.want {
			t.Errorf("Exponential(%d, cfg) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponential_ZeroOrNegativeAttempt(t *testing.T) {
	t.Parallel()

	// Attempts < 1 should return initial
	if got := Exponential(0, nil); got != 100*time.Millisecond {
		t.Errorf("Exponential(0, nil) = %v, want 100ms", got)
	}
	if got := Exponential(-1, nil); got != 100*time.Millisecond {
		t.Errorf("Exponential(-1, nil) = %v, want 100ms", got)
	}
}

func TestExponential_PartialConfig(t *testing.T) {
	t.Parallel()

	// Only Initial set, Max uses default
	cfg := &Config{Initial: 200 * time.Millisecond}
	if got := Exponential(1, cfg); got != 200*time.Millisecond {
		t.Errorf("Exponential(1, {Initial: 200ms}) = %v, want 200ms", got)
	}
	if got := Exponential(6, cfg); got != 5*time.Second {
		t.Errorf("Exponential(6, {Initial: 200ms}) = %v, want 5s (default max)", got)
	}

	// Only Max set, Initial uses default
	cfg = &Config{Max: 300 * time.Millisecond}
	if got := Exponential(1, cfg); got != 100*time.Millisecond {
		t.Errorf("Exponential(1, {Max: 300ms}) = %v, want 100ms (default initial)", got)
	}
	if got := Exponential(3, cfg); got != 300*time.Millisecond {
		t.Errorf("Exponential(3, {Max: 300ms}) = %v, want 300ms (capped)", got)
	}
}

func TestPoll_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Poll(context.Background(), time.Second, nil, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 check, got %d", calls)
	}
}

func TestPoll_EventualSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	cfg := &Config{Initial: time.Millisecond, Max: 5 * time.Millisecond}
	err := Poll(context.Background(), time.Second, cfg, func(context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 checks, got %d", calls)
	}
}

func TestPoll_Timeout(t *testing.T) {
	t.Parallel()

	cfg := &Config{Initial: 5 * time.Millisecond, Max: 10 * time.Millisecond}
	start := time.Now()
	err := Poll(context.Background(), 50*time.Millisecond, cfg, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Poll overran its timeout: %v", elapsed)
	}
}

func TestPoll_ConditionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := Poll(context.Background(), time.Second, nil, func(context.Context) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected condition error, got %v", err)
	}
}

func TestPoll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &Config{Initial: 50 * time.Millisecond}
	err := Poll(ctx, time.Second, cfg, func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
