package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker     string
	MeterTopic string
	Format     string
	Interval   time.Duration
	// BaseWatts is the household balance without controlled loads. Negative
	// values are exported to the grid.
	BaseWatts  float64
	NoiseWatts float64
	Loads      string
	Verbose    bool
}

// Validate checks the parsed flags.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.MeterTopic == "" {
		return fmt.Errorf("meter topic is required")
	}
	if c.Format != "sample" && c.Format != "shelly_em" {
		return fmt.Errorf("unsupported format %q", c.Format)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.NoiseWatts < 0 {
		return fmt.Errorf("noise must not be negative")
	}
	_, err := ParseLoads(c.Loads)
	return err
}

// ParseLoads reads a comma separated list of topic=watts pairs, for example
// "home/boiler=1000,home/heater=2000".
func ParseLoads(s string) ([]Load, error) {
	var out []Load
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		topic, w, ok := strings.Cut(part, "=")
		if !ok || topic == "" {
			return nil, fmt.Errorf("invalid load %q, want topic=watts", part)
		}
		watts, err := strconv.ParseFloat(w, 64)
		if err != nil || watts <= 0 {
			return nil, fmt.Errorf("invalid power for %s: %q", topic, w)
		}
		if seen[topic] {
			return nil, fmt.Errorf("duplicate load topic %s", topic)
		}
		seen[topic] = true
		out = append(out, Load{Topic: topic, Watts: watts})
	}
	return out, nil
}
