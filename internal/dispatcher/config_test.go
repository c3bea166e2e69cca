package dispatcher

import (
	"testing"
	"time"
)

func TestConfig_WithDefaults_ZeroValues(t *testing.T) {
	t.Parallel()
	cfg := Config{}.withDefaults()

	if cfg.SendInterval != time.Second {
		t.Errorf("Expected SendInterval 1s, got %v", cfg.SendInterval)
	}
	if cfg.ReacquireAfter != 3 {
		t.Errorf("Expected ReacquireAfter 3, got %d", cfg.ReacquireAfter)
	}
}

func TestConfig_WithDefaults_NegativeValues(t *testing.T) {
	t.Parallel()
	cfg := Config{
		SendInterval:   -1,
		ReacquireAfter: -1,
	}.withDefaults()

	// A negative interval disables pacing and is kept.
	if cfg.SendInterval != -1 {
		t.Errorf("Expected SendInterval -1, got %v", cfg.SendInterval)
	}
	if cfg.ReacquireAfter != 3 {
		t.Errorf("Expected ReacquireAfter 3, got %d", cfg.ReacquireAfter)
	}
}

func TestConfig_WithDefaults_PreservesValidValues(t *testing.T) {
	t.Parallel()
	cfg := Config{
		SendInterval:   5 * time.Second,
		ReacquireAfter: 1,
	}.withDefaults()

	if cfg.SendInterval != 5*time.Second {
		t.Errorf("Expected SendInterval 5s, got %v", cfg.SendInterval)
	}
	if cfg.ReacquireAfter != 1 {
		t.Errorf("Expected ReacquireAfter 1, got %d", cfg.ReacquireAfter)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SEND_INTERVAL", "250ms")
	t.Setenv("REACQUIRE_AFTER", "5")

	cfg := LoadConfigFromEnv()

	if cfg.SendInterval != 250*time.Millisecond {
		t.Errorf("Expected SendInterval 250ms, got %v", cfg.SendInterval)
	}
	if cfg.ReacquireAfter != 5 {
		t.Errorf("Expected ReacquireAfter 5, got %d", cfg.ReacquireAfter)
	}
}
