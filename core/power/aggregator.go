// Package power reduces per-channel meter readings to the single signed
// surplus scalar consumed by the allocator.
//
// The surplus uses the meter convention: negative values are power exported
// to the grid, positive values are imported. Meters reporting the opposite
// polarity are handled with Config.Invert.
package power

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// ErrInvalidSample is returned for samples with a missing channel or a
// non-finite value. Such samples leave the aggregate untouched.
var ErrInvalidSample = errors.New("invalid power sample")

// Config controls how readings are combined.
type Config struct {
	Invert bool
	// Simulation, when enabled, replaces live readings entirely.
	Simulation Simulation
}

// Simulation forces a fixed surplus value.
type Simulation struct {
	Enabled bool    `json:"enabled"`
	Power   float64 `json:"power_value"`
}

// Aggregator keeps the latest reading per channel.
type Aggregator struct {
	cfg Config

	mu       sync.RWMutex
	readings map[string]float64
}

// NewAggregator returns an empty aggregator.
func NewAggregator(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg, readings: make(map[string]float64)}
}

// Update stores the latest reading for the channel. Older readings for the
// same channel are discarded.
func (a *Aggregator) Update(channel string, watts float64) error {
	if channel == "" {
		return fmt.Errorf("%w: empty channel", ErrInvalidSample)
	}
	if math.IsNaN(watts) || math.IsInf(watts, 0) {
		return fmt.Errorf("%w: channel %s value %v", ErrInvalidSample, channel, watts)
	}
	a.mu.Lock()
	a.readings[channel] = watts
	a.mu.Unlock()
	return nil
}

// Surplus returns the signed sum over all known channels, negated when the
// aggregator is configured to invert readings. In simulation mode the
// configured value is returned regardless of readings.
func (a *Aggregator) Surplus() float64 {
	if a.cfg.Simulation.Enabled {
		return a.cfg.Simulation.Power
	}
	a.mu.RLock()
	values := make([]float64, 0, len(a.readings))
	for _, v := range a.readings {
		values = append(values, v)
	}
	a.mu.RUnlock()
	// Summation order is fixed so repeated calls yield identical results.
	sort.Float64s(values)
	sum := floats.Sum(values)
	if a.cfg.Invert {
		return -sum
	}
	return sum
}

// Channels returns the known channel identifiers in sorted order.
func (a *Aggregator) Channels() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, 0, len(a.readings))
	for ch := range a.readings {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
