package config

import (
	"fmt"

	"github.com/kilianp07/loadshift/core/model"
)

// DeviceConfig describes one controllable load. Channel is the relay
// channel for gen1 devices and the switch id for gen2 devices.
type DeviceConfig struct {
	Name               string `json:"name"`
	ExpectedPowerWatts int    `json:"expected_power_watts"`
	Type               string `json:"type"`
	Address            string `json:"address"`
	Channel            int    `json:"channel"`
	Topic              string `json:"topic"`
}

// Device converts the entry to a model.Device.
func (d DeviceConfig) Device() (model.Device, error) {
	var ep model.Endpoint
	switch d.Type {
	case "gen1":
		ep = model.Gen1Relay{Address: d.Address, Channel: d.Channel}
	case "gen2":
		ep = model.Gen2Switch{Address: d.Address, ID: d.Channel}
	case "mqtt":
		ep = model.MQTTSwitch{Topic: d.Topic}
	default:
		return model.Device{}, fmt.Errorf("device %s: unknown type %q", d.Name, d.Type)
	}
	dev := model.Device{Name: d.Name, ExpectedPowerWatts: d.ExpectedPowerWatts, Endpoint: ep}
	if err := dev.Validate(); err != nil {
		return model.Device{}, err
	}
	return dev, nil
}

// Catalog returns the devices in configuration order.
func (c *Config) Catalog() ([]model.Device, error) {
	seen := make(map[string]struct{}, len(c.Devices))
	out := make([]model.Device, 0, len(c.Devices))
	for _, dc := range c.Devices {
		if _, dup := seen[dc.Name]; dup {
			return nil, fmt.Errorf("duplicate device name %q", dc.Name)
		}
		seen[dc.Name] = struct{}{}
		d, err := dc.Device()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
