package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/loadshift/core/hysteresis"
	"github.com/kilianp07/loadshift/core/model"
)

type DeviceDef struct {
	Name               string `yaml:"name"`
	ExpectedPowerWatts int    `yaml:"expected_power_watts"`
}

func (d DeviceDef) ToModel() model.Device {
	return model.Device{
		Name:               d.Name,
		ExpectedPowerWatts: d.ExpectedPowerWatts,
		Endpoint:           model.MQTTSwitch{Topic: "scenario/" + d.Name},
	}
}

type ControlDef struct {
	HeadroomWatts   int `yaml:"headroom_watts"`
	SpanWatts       int `yaml:"span_watts"`
	IncreaseSeconds int `yaml:"increase_seconds"`
	DecreaseSeconds int `yaml:"decrease_seconds"`
}

func (c ControlDef) ToGate() hysteresis.Config {
	return hysteresis.Config{
		HeadroomWatts: c.HeadroomWatts,
		SpanWatts:     c.SpanWatts,
		IncreaseDelay: time.Duration(c.IncreaseSeconds) * time.Second,
		DecreaseDelay: time.Duration(c.DecreaseSeconds) * time.Second,
	}
}

// Step is one meter reading. Resync triggers a full resync right before
// the reading is handled.
type Step struct {
	AtSeconds int     `yaml:"at_seconds"`
	Channel   string  `yaml:"channel,omitempty"`
	Watts     float64 `yaml:"watts"`
	Resync    bool    `yaml:"resync,omitempty"`
}

type Expected struct {
	Commands []string `yaml:"commands"`
	Failed   int      `yaml:"failed"`
	Resyncs  int      `yaml:"resyncs"`
	FinalOn  []string `yaml:"final_on"`
}

type Scenario struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	Devices     []DeviceDef `yaml:"devices"`
	Control     ControlDef  `yaml:"control"`
	Steps       []Step      `yaml:"steps"`
	FailDevices []string    `yaml:"fail_devices,omitempty"`
	Expected    Expected    `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario name is required", path)
	}
	for i := 1; i < len(sc.Steps); i++ {
		if sc.Steps[i].AtSeconds < sc.Steps[i-1].AtSeconds {
			return nil, fmt.Errorf("%s: steps must be ordered by time", path)
		}
	}
	return &sc, nil
}
