package browser

import (
	"pdfcourier/internal/config"
	"time"
)

// Config holds configuration for the chromedp surface.
type Config struct {
	UserDataDir   string        // persistent profile; keeps the messaging login across runs
	Headless      bool          // default: false, the messaging client needs a paired session
	RemoteURL     string        // DevTools endpoint of an already running browser; overrides local launch
	WindowWidth   int           // default: 1280
	WindowHeight  int           // default: 900
	ActionTimeout time.Duration // upper bound for a single element action (default: 10s)
}

// LoadConfigFromEnv loads browser configuration from environment variables.
func LoadConfigFromEnv() Config {
	return Config{
		UserDataDir:   config.GetEnv("BROWSER_USER_DATA_DIR", "chrome-data"),
		Headless:      config.GetBoolEnv("BROWSER_HEADLESS", false),
		RemoteURL:     config.GetEnv("BROWSER_REMOTE_URL", ""),
		WindowWidth:   config.GetIntEnv("BROWSER_WINDOW_WIDTH", 1280),
		WindowHeight:  config.GetIntEnv("BROWSER_WINDOW_HEIGHT", 900),
		ActionTimeout: config.GetDurationEnv("BROWSER_ACTION_TIMEOUT", 10*time.Second),
	}
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.UserDataDir == "" {
		c.UserDataDir = "chrome-data"
	}
	if c.WindowWidth == 0 {
		c.WindowWidth = 1280
	}
	if c.WindowHeight == 0 {
		c.WindowHeight = 900
	}
	if c.ActionTimeout == 0 {
		c.ActionTimeout = 10 * time.Second
	}
	return c
}
