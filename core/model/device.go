package model

import "fmt"

// Direction is the ON/OFF state requested for a device.
type Direction int

const (
	DirectionOff Direction = iota
	DirectionOn
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionOff || d == DirectionOn
}

// String returns a human-readable representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionOff:
		return "off"
	case DirectionOn:
		return "on"
	default:
		return "invalid"
	}
}

// PresumedState is the controller's belief about the last commanded state of
// a device.
type PresumedState int

const (
	PresumedUnknown PresumedState = iota
	PresumedOn
	PresumedOff
)

// String returns a human-readable representation of the presumed state.
func (s PresumedState) String() string {
	switch s {
	case PresumedOn:
		return "on"
	case PresumedOff:
		return "off"
	default:
		return "unknown"
	}
}

// Matches reports whether the presumed state equals the requested direction.
func (s PresumedState) Matches(d Direction) bool {
	return (s == PresumedOn && d == DirectionOn) || (s == PresumedOff && d == DirectionOff)
}

// PresumedFor returns the presumed state resulting from a command in direction d.
func PresumedFor(d Direction) PresumedState {
	if d == DirectionOn {
		return PresumedOn
	}
	return PresumedOff
}

// Device is a controllable load.
type Device struct {
	Name string
	// ExpectedPowerWatts is the draw when the device is ON. Zero means the
	// draw is unknown and the device is not managed by the allocator.
	ExpectedPowerWatts int
	Endpoint           Endpoint

	PresumedState  PresumedState
	RequiresResync bool
}

// Managed reports whether the device takes part in allocation.
func (d Device) Managed() bool {
	return d.ExpectedPowerWatts > 0
}

// Validate checks the static part of a device definition.
func (d Device) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("device name is required")
	}
	if d.ExpectedPowerWatts < 0 {
		return fmt.Errorf("device %s: expected power must not be negative", d.Name)
	}
	if d.Endpoint == nil {
		return fmt.Errorf("device %s: endpoint is required", d.Name)
	}
	return d.Endpoint.validate()
}
