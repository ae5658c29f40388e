package metrics

import (
	"time"

	"github.com/kilianp07/loadshift/core/model"
)

// CommandEvent describes one finished device command.
type CommandEvent struct {
	CommandID string
	Device    string
	Direction model.Direction
	Resync    bool
	Success   bool
	Error     string
	Latency   time.Duration
	Time      time.Time
}

// CommandEventFromResult converts a dispatcher result.
func CommandEventFromResult(r model.CommandResult) CommandEvent {
	ev := CommandEvent{
		CommandID: r.Request.ID,
		Device:    r.Request.Device.Name,
		Direction: r.Request.Direction,
		Resync:    r.Request.Resync,
		Success:   r.Success(),
		Latency:   r.Latency(),
		Time:      r.Finished,
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	return ev
}

// MetricsSink records command outcomes.
type MetricsSink interface {
	RecordCommand(ev CommandEvent) error
}

// AllocationEvent is emitted when the hysteresis gate applies a transition.
type AllocationEvent struct {
	Step              model.Step
	ExpectedDrawWatts int
	On                []string
	Time              time.Time
}

// AllocationRecorder records applied allocations.
type AllocationRecorder interface {
	RecordAllocation(ev AllocationEvent) error
}

// PowerEvent is a surplus reading after a sample was processed.
type PowerEvent struct {
	SurplusWatts      float64
	ExpectedDrawWatts int
	Pending           int
	Time              time.Time
}

// PowerRecorder records surplus updates.
type PowerRecorder interface {
	RecordPower(ev PowerEvent) error
}

// Closer is implemented by sinks holding a connection that must be
// flushed on shutdown.
type Closer interface {
	Close()
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordCommand(CommandEvent) error       { return nil }
func (NopSink) RecordAllocation(AllocationEvent) error { return nil }
func (NopSink) RecordPower(PowerEvent) error           { return nil }
