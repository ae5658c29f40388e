package dispatch

import (
	"fmt"
	"time"
)

// Config defines command dispatch settings.
type Config struct {
	MaxParallelCalls      int `json:"max_parallel_calls"`
	CommandTimeoutSeconds int `json:"command_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxParallelCalls == 0 {
		c.MaxParallelCalls = 1
	}
	if c.CommandTimeoutSeconds <= 0 {
		c.CommandTimeoutSeconds = 5
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.MaxParallelCalls < 1 {
		return fmt.Errorf("max_parallel_calls must be at least 1")
	}
	return nil
}

// CommandTimeout returns the per-command deadline.
func (c Config) CommandTimeout() time.Duration {
	return time.Duration(c.CommandTimeoutSeconds) * time.Second
}
