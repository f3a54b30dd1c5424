package tasks

import (
	"time"

	"github.com/mrlokans/bookshare/internal/config"
)

// Config sizes the worker pool. Attempts, backoff and timeouts belong to
// each task type's QueueConfig.
type Config struct {
	Workers         int
	ReleaseAfter    time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig suits a single small instance: reminders run once a day and
// notifications are a handful per request.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

// FromAppConfig takes the TASK_* settings, keeping defaults for unset values.
func FromAppConfig(cfg config.Tasks) Config {
	out := DefaultConfig()
	if cfg.Workers > 0 {
		out.Workers = cfg.Workers
	}
	if cfg.ReleaseAfter > 0 {
		out.ReleaseAfter = cfg.ReleaseAfter
	}
	if cfg.CleanupInterval > 0 {
		out.CleanupInterval = cfg.CleanupInterval
	}
	return out
}
