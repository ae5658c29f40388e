// Package devicestate keeps the presumed state of every device and filters
// out commands that would not change anything.
package devicestate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/loadshift/core/model"
)

// ErrUnknownDevice is returned when a name is not part of the catalog. The
// catalog is the only source of allocation candidates, so this indicates a
// configuration or logic error.
var ErrUnknownDevice = errors.New("unknown device")

// ErrInvalidDirection is returned for directions other than on and off.
var ErrInvalidDirection = errors.New("invalid direction")

// Decision tells whether a command must be sent and why.
type Decision struct {
	Send bool
	// Resync is true when the command only re-asserts the presumed state.
	Resync bool
	Device model.Device

	prevState  model.PresumedState
	prevResync bool
}

// Tracker owns the device catalog and its presumed states.
type Tracker struct {
	mu      sync.Mutex
	order   []string
	devices map[string]*model.Device
}

// NewTracker builds a tracker from the catalog. Every device starts with an
// unknown presumed state.
func NewTracker(catalog []model.Device) (*Tracker, error) {
	t := &Tracker{devices: make(map[string]*model.Device, len(catalog))}
	for _, d := range catalog {
		if _, dup := t.devices[d.Name]; dup {
			return nil, fmt.Errorf("duplicate device name %q", d.Name)
		}
		d := d
		d.PresumedState = model.PresumedUnknown
		d.RequiresResync = false
		t.devices[d.Name] = &d
		t.order = append(t.order, d.Name)
	}
	return t, nil
}

// ShouldSend decides whether a command in direction dir must be issued to the
// named device and, if so, records the new presumed state right away. A
// command that is then not handed to a transport must be undone with
// Rollback.
//
// A command matching the presumed state is suppressed unless the device is
// flagged for resync, in which case it is sent once and the flag cleared.
func (t *Tracker) ShouldSend(name string, dir model.Direction) (Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[name]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	if !dir.Valid() {
		return Decision{Device: *d}, fmt.Errorf("%w: %d for %s", ErrInvalidDirection, dir, name)
	}
	dec := Decision{prevState: d.PresumedState, prevResync: d.RequiresResync}
	if d.PresumedState.Matches(dir) {
		if !d.RequiresResync {
			dec.Device = *d
			return dec, nil
		}
		d.RequiresResync = false
		dec.Send, dec.Resync, dec.Device = true, true, *d
		return dec, nil
	}
	d.PresumedState = model.PresumedFor(dir)
	d.RequiresResync = false
	dec.Send, dec.Device = true, *d
	return dec, nil
}

// Rollback restores the state a sending decision replaced. It is a no-op for
// decisions that did not send.
func (t *Tracker) Rollback(dec Decision) {
	if !dec.Send {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if d, ok := t.devices[dec.Device.Name]; ok {
		d.PresumedState = dec.prevState
		d.RequiresResync = dec.prevResync
	}
}

// MarkAllForResync flags every device so that its next command is sent even
// if the presumed state already matches.
func (t *Tracker) MarkAllForResync() {
	t.mu.Lock()
	for _, d := range t.devices {
		d.RequiresResync = true
	}
	t.mu.Unlock()
}

// Device returns a copy of the named device.
func (t *Tracker) Device(name string) (model.Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.devices[name]
	if !ok {
		return model.Device{}, false
	}
	return *d, true
}

// Devices returns copies of all devices in catalog order.
func (t *Tracker) Devices() []model.Device {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.Device, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.devices[name])
	}
	return out
}
