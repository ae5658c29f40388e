package model

import (
	"fmt"
	"strings"
	"time"
)

// Watts is an integer power value. Expected power draws are keyed by Watts so
// that distinct allocations sharing the same total draw are coalesced.
type Watts int

// Assignment is the desired direction for one device.
type Assignment struct {
	Device    string
	Direction Direction
}

// Allocation is a desired ON/OFF assignment for every managed device.
// Assignments are kept in catalog order.
type Allocation struct {
	Assignments       []Assignment
	ExpectedPowerDraw Watts
}

// Direction returns the direction assigned to the named device.
func (a Allocation) Direction(name string) (Direction, bool) {
	for _, as := range a.Assignments {
		if as.Device == name {
			return as.Direction, true
		}
	}
	return DirectionOff, false
}

// On returns the names of the devices switched on, in catalog order.
func (a Allocation) On() []string {
	var names []string
	for _, as := range a.Assignments {
		if as.Direction == DirectionOn {
			names = append(names, as.Device)
		}
	}
	return names
}

// String renders the allocation as "A=on,B=off (1000W)".
func (a Allocation) String() string {
	parts := make([]string, 0, len(a.Assignments))
	for _, as := range a.Assignments {
		parts = append(parts, as.Device+"="+as.Direction.String())
	}
	return fmt.Sprintf("%s (%dW)", strings.Join(parts, ","), a.ExpectedPowerDraw)
}

// Step tells whether a transition turns more load on or off.
type Step int

const (
	StepUp Step = iota
	StepDown
)

// String returns a human-readable representation of the step.
func (s Step) String() string {
	if s == StepUp {
		return "up"
	}
	return "down"
}

// PendingTransition is a candidate allocation change awaiting confirmation.
type PendingTransition struct {
	Target         Allocation
	Step           Step
	CreatedAt      time.Time
	ActivationTime time.Time
}

// TargetDraw returns the expected power draw of the target allocation.
func (p PendingTransition) TargetDraw() Watts {
	return p.Target.ExpectedPowerDraw
}
