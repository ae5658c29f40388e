package model

import "time"

// PowerSample is one meter update.
type PowerSample struct {
	Channel   string
	Watts     float64
	Timestamp time.Time
}

// CommandRequest is one outbound device command.
type CommandRequest struct {
	ID        string
	Device    Device
	Direction Direction
	// Resync is true when the command re-asserts a state already presumed
	// correct.
	Resync    bool
	Submitted time.Time
}

// CommandResult is the outcome of an issued command.
type CommandResult struct {
	Request  CommandRequest
	Err      error
	Started  time.Time
	Finished time.Time
}

// Success reports whether the command completed without error.
func (r CommandResult) Success() bool { return r.Err == nil }

// Latency returns the time spent issuing the command.
func (r CommandResult) Latency() time.Duration { return r.Finished.Sub(r.Started) }
