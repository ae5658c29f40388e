// Package command routes device commands to the transport matching the
// device endpoint.
package command

import (
	"context"
	"fmt"

	"github.com/kilianp07/loadshift/core/dispatch"
	"github.com/kilianp07/loadshift/core/model"
)

// Router is a dispatch.Commander delegating by endpoint variant.
type Router struct {
	HTTP dispatch.Commander
	MQTT dispatch.Commander
}

// IssueCommand picks the transport for dev.Endpoint.
func (r Router) IssueCommand(ctx context.Context, dev model.Device, dir model.Direction) error {
	var next dispatch.Commander
	switch dev.Endpoint.(type) {
	case model.Gen1Relay, model.Gen2Switch:
		next = r.HTTP
	case model.MQTTSwitch:
		next = r.MQTT
	default:
		return fmt.Errorf("command: device %s has unsupported endpoint %T", dev.Name, dev.Endpoint)
	}
	if next == nil {
		return fmt.Errorf("command: no %s transport configured for %s", dev.Endpoint.Kind(), dev.Name)
	}
	return next.IssueCommand(ctx, dev, dir)
}

// Validate checks that every device in catalog has a transport.
func (r Router) Validate(catalog []model.Device) error {
	for _, d := range catalog {
		switch d.Endpoint.(type) {
		case model.MQTTSwitch:
			if r.MQTT == nil {
				return fmt.Errorf("command: device %s needs mqtt but no broker is configured", d.Name)
			}
		case model.Gen1Relay, model.Gen2Switch:
			if r.HTTP == nil {
				return fmt.Errorf("command: device %s needs the http transport", d.Name)
			}
		}
	}
	return nil
}
