package dispatcher

import (
	"pdfcourier/internal/config"
	"time"
)

// Config holds configuration for the batch dispatcher.
type Config struct {
	SendInterval   time.Duration // minimum spacing between sends (default: 1s; negative disables pacing)
	ReacquireAfter int           // consecutive failed sends before the target is re-resolved (default: 3)
}

// LoadConfigFromEnv loads dispatcher configuration from environment variables.
func LoadConfigFromEnv() Config {
	cfg := Config{
		SendInterval:   config.GetDurationEnv("SEND_INTERVAL", time.Second),
		ReacquireAfter: config.GetIntEnv("REACQUIRE_AFTER", 3),
	}
	return cfg.withDefaults()
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.SendInterval == 0 {
		c.SendInterval = time.Second
	}
	if c.ReacquireAfter <= 0 {
		c.ReacquireAfter = 3
	}
	return c
}
