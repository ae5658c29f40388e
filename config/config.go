package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/loadshift/core/factory"
	"github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/infra/mqtt"
	"github.com/kilianp07/loadshift/infra/shelly"
)

// EnvPrefix marks environment overrides. A double underscore separates
// nested keys: LS_CONTROL__MAX_PARALLEL_CALLS=4.
const EnvPrefix = "LS_"

type Config struct {
	MQTT    mqtt.Config    `json:"mqtt"`
	Meter   MeterConfig    `json:"meter"`
	Control ControlConfig  `json:"control"`
	Devices []DeviceConfig `json:"devices"`
	HTTP    shelly.Config  `json:"http"`
	Metrics metrics.Config `json:"metrics"`
	Logging LoggingConfig  `json:"logging"`
	Events  EventsConfig   `json:"events"`
}

// MeterConfig selects the meter topic and payload format.
type MeterConfig struct {
	Topic  string         `json:"topic"`
	Format string         `json:"format"`
	Conf   map[string]any `json:"conf"`
}

// Module returns the decoder selection for the meter package.
func (m MeterConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: m.Format, Conf: m.Conf}
}

// EventsConfig configures state change publication. An empty topic
// disables it.
type EventsConfig struct {
	Topic string `json:"topic"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills unset values in every section.
func (c *Config) SetDefaults() {
	c.Control.SetDefaults()
	c.Logging.SetDefaults()
	if c.Meter.Format == "" {
		c.Meter.Format = "sample"
	}
}

// Validate checks the sections and their cross references.
func (c *Config) Validate() error {
	if err := c.Control.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	catalog, err := c.Catalog()
	if err != nil {
		return err
	}
	if len(catalog) == 0 {
		return fmt.Errorf("at least one device is required")
	}
	if c.Meter.Topic == "" && !c.Control.Simulation.Enabled {
		return fmt.Errorf("meter.topic is required unless simulation is enabled")
	}
	if c.NeedsMQTT() {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NeedsMQTT reports whether any component uses the broker.
func (c *Config) NeedsMQTT() bool {
	if c.Meter.Topic != "" || c.Events.Topic != "" {
		return true
	}
	for _, d := range c.Devices {
		if d.Type == "mqtt" {
			return true
		}
	}
	return false
}
