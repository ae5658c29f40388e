package events

import (
	"time"

	"github.com/kilianp07/loadshift/core/model"
)

// Event is implemented by every event carried on the controller bus.
type Event interface {
	Kind() string
}

// StateChangeEvent is published for every command the controller submits.
type StateChangeEvent struct {
	Device            string          `json:"device"`
	Direction         model.Direction `json:"-"`
	State             string          `json:"direction"`
	Resync            bool            `json:"resync"`
	ExpectedDrawWatts int             `json:"expected_draw_watts"`
	Time              time.Time       `json:"time"`
}

// NewStateChangeEvent fills State from the direction.
func NewStateChangeEvent(device string, dir model.Direction, resync bool, draw model.Watts, at time.Time) StateChangeEvent {
	return StateChangeEvent{
		Device:            device,
		Direction:         dir,
		State:             dir.String(),
		Resync:            resync,
		ExpectedDrawWatts: int(draw),
		Time:              at,
	}
}

func (StateChangeEvent) Kind() string { return "state_change" }

// CommandEvent reports a finished command.
type CommandEvent struct {
	Result model.CommandResult
}

func (CommandEvent) Kind() string { return "command" }

// AllocationEvent reports an applied allocation.
type AllocationEvent struct {
	Allocation model.Allocation
	Step       model.Step
	Time       time.Time
}

func (AllocationEvent) Kind() string { return "allocation" }

// PowerEvent is published after every evaluated sample.
type PowerEvent struct {
	SurplusWatts      float64
	UncontrolledWatts float64
	ExpectedDrawWatts model.Watts
	Pending           int
	Time              time.Time
}

func (PowerEvent) Kind() string { return "power" }
