package scheduler

import (
	"time"

	"github.com/smallbiznis/tixora/internal/config"
)

// Config controls the sweep cadence.
type Config struct {
	Enabled      bool
	RunInterval  time.Duration
	StartupDelay time.Duration
	JobTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		RunInterval:  5 * time.Minute,
		StartupDelay: 30 * time.Second,
		JobTimeout:   time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:      cfg.Scheduler.Enabled,
		RunInterval:  cfg.Scheduler.Interval,
		StartupDelay: cfg.Scheduler.StartupDelay,
		JobTimeout:   cfg.Scheduler.JobTimeout,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.StartupDelay < 0 {
		c.StartupDelay = 0
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
