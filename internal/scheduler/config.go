package scheduler

// DefaultSchedule fires once a day at 16:00 local time.
const DefaultSchedule = "0 16 * * *"

// Config holds configuration for the scheduler.
type Config struct {
	Schedule   string // standard 5-field cron expression or descriptor (default: DefaultSchedule)
	RunOnStart bool   // fire one run immediately on Start
}

// withDefaults fills in zero values with defaults.
func (c Config) withDefaults() Config {
	if c.Schedule == "" {
		c.Schedule = DefaultSchedule
	}
	return c
}
