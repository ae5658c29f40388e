package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/loadshift/core/dispatch"
	"github.com/kilianp07/loadshift/core/hysteresis"
	"github.com/kilianp07/loadshift/core/power"
)

// ControlConfig tunes the control loop.
type ControlConfig struct {
	PowerHeadroomWatts               int              `json:"power_headroom_watts"`
	PowerHysteresisSpanWatts         int              `json:"power_hysteresis_span_watts"`
	IncreaseThresholdDurationSeconds int              `json:"increase_threshold_duration_seconds"`
	DecreaseThresholdDurationSeconds int              `json:"decrease_threshold_duration_seconds"`
	SyncIntervalSeconds              int              `json:"sync_interval_seconds"`
	InvertPowerReadings              bool             `json:"invert_power_readings"`
	MaxParallelCalls                 int              `json:"max_parallel_calls"`
	CommandTimeoutSeconds            int              `json:"command_timeout_seconds"`
	Simulation                       power.Simulation `json:"simulation"`
}

// SetDefaults fills zero durations and limits.
func (c *ControlConfig) SetDefaults() {
	if c.IncreaseThresholdDurationSeconds == 0 {
		c.IncreaseThresholdDurationSeconds = 60
	}
	if c.DecreaseThresholdDurationSeconds == 0 {
		c.DecreaseThresholdDurationSeconds = 30
	}
	if c.SyncIntervalSeconds == 0 {
		c.SyncIntervalSeconds = 300
	}
	if c.MaxParallelCalls == 0 {
		c.MaxParallelCalls = 1
	}
	if c.CommandTimeoutSeconds == 0 {
		c.CommandTimeoutSeconds = 5
	}
}

// Validate rejects negative values.
func (c ControlConfig) Validate() error {
	for name, v := range map[string]int{
		"power_headroom_watts":                c.PowerHeadroomWatts,
		"power_hysteresis_span_watts":         c.PowerHysteresisSpanWatts,
		"increase_threshold_duration_seconds": c.IncreaseThresholdDurationSeconds,
		"decrease_threshold_duration_seconds": c.DecreaseThresholdDurationSeconds,
		"command_timeout_seconds":             c.CommandTimeoutSeconds,
	} {
		if v < 0 {
			return fmt.Errorf("control.%s must not be negative", name)
		}
	}
	if c.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("control.sync_interval_seconds must be positive")
	}
	if c.MaxParallelCalls < 1 {
		return fmt.Errorf("control.max_parallel_calls must be at least 1")
	}
	return nil
}

// Power returns the aggregator settings.
func (c ControlConfig) Power() power.Config {
	return power.Config{Invert: c.InvertPowerReadings, Simulation: c.Simulation}
}

// Gate returns the hysteresis settings.
func (c ControlConfig) Gate() hysteresis.Config {
	return hysteresis.Config{
		HeadroomWatts: c.PowerHeadroomWatts,
		SpanWatts:     c.PowerHysteresisSpanWatts,
		IncreaseDelay: time.Duration(c.IncreaseThresholdDurationSeconds) * time.Second,
		DecreaseDelay: time.Duration(c.DecreaseThresholdDurationSeconds) * time.Second,
	}
}

// Dispatch returns the dispatcher settings.
func (c ControlConfig) Dispatch() dispatch.Config {
	return dispatch.Config{MaxParallelCalls: c.MaxParallelCalls, CommandTimeoutSeconds: c.CommandTimeoutSeconds}
}

// SyncInterval is the period of the full resync.
func (c ControlConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}
