// Package events defines the controller events published on the event bus.
//
// Available event types:
//   - StateChangeEvent: a command was submitted to change or re-assert a device state
//   - CommandEvent: a command finished
//   - AllocationEvent: the hysteresis gate applied a new allocation
//   - PowerEvent: the surplus after a sample was evaluated
package events
