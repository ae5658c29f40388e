package mqtt

import (
	"context"
	"fmt"

	"github.com/kilianp07/loadshift/core/model"
)

// Payloads published to MQTTSwitch topics.
const (
	PayloadOn  = "on"
	PayloadOff = "off"
)

// Commander switches MQTTSwitch devices by publishing to their topic.
type Commander struct {
	pub    Publisher
	qos    byte
	retain bool
}

// NewCommander returns a commander publishing with the given QoS and retain
// flag.
func NewCommander(pub Publisher, qos byte, retain bool) *Commander {
	return &Commander{pub: pub, qos: qos, retain: retain}
}

// IssueCommand publishes "on" or "off" to the device topic.
func (c *Commander) IssueCommand(ctx context.Context, dev model.Device, dir model.Direction) error {
	ep, ok := dev.Endpoint.(model.MQTTSwitch)
	if !ok {
		return fmt.Errorf("mqtt: device %s has a %T endpoint", dev.Name, dev.Endpoint)
	}
	payload := PayloadOff
	switch dir {
	case model.DirectionOn:
		payload = PayloadOn
	case model.DirectionOff:
	default:
		return fmt.Errorf("mqtt: invalid direction %d for %s", dir, dev.Name)
	}
	return c.pub.Publish(ctx, ep.Topic, c.qos, c.retain, []byte(payload))
}
