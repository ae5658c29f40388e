package model

import "fmt"

// Endpoint describes how a device is reached. The set of implementations is
// closed: Gen1Relay, Gen2Switch and MQTTSwitch. Transports switch on the
// concrete type.
type Endpoint interface {
	// Kind returns the protocol tag used in configuration.
	Kind() string
	validate() error
}

// Gen1Relay is a first generation relay driven over HTTP
// (GET /relay/{channel}?turn=on|off).
type Gen1Relay struct {
	Address string
	Channel int
}

func (Gen1Relay) Kind() string { return "gen1" }

func (e Gen1Relay) validate() error {
	if e.Address == "" {
		return fmt.Errorf("gen1: address is required")
	}
	if e.Channel < 0 {
		return fmt.Errorf("gen1: channel must not be negative")
	}
	return nil
}

// Gen2Switch is a second generation switch driven over HTTP RPC
// (GET /rpc/Switch.Set?id={id}&on=true|false).
type Gen2Switch struct {
	Address string
	ID      int
}

func (Gen2Switch) Kind() string { return "gen2" }

func (e Gen2Switch) validate() error {
	if e.Address == "" {
		return fmt.Errorf("gen2: address is required")
	}
	if e.ID < 0 {
		return fmt.Errorf("gen2: id must not be negative")
	}
	return nil
}

// MQTTSwitch is a device commanded by publishing "on" or "off" to Topic.
type MQTTSwitch struct {
	Topic string
}

func (MQTTSwitch) Kind() string { return "mqtt" }

func (e MQTTSwitch) validate() error {
	if e.Topic == "" {
		return fmt.Errorf("mqtt: topic is required")
	}
	return nil
}
