package scheduler

import (
	"time"
)

// Config controls the scheduler loop itself. Job-level settings (age
// days, batch size, cron schedule) live on the persisted settlement
// configuration.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
