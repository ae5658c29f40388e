package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadshift/core/model"
)

const sampleYAML = `mqtt:
  broker: "tcp://localhost:1883"
  client_id: "loadshift"
  retain_commands: true
  qos:
    meter: 1
meter:
  topic: "shellies/pro3em/events/rpc"
  format: "shelly_em"
control:
  power_headroom_watts: 500
  power_hysteresis_span_watts: 200
  increase_threshold_duration_seconds: 90
  sync_interval_seconds: 600
  invert_power_readings: true
  max_parallel_calls: 2
devices:
  - name: heatpump
    expected_power_watts: 3000
    type: gen2
    address: 192.168.1.30
    channel: 0
  - name: boiler
    expected_power_watts: 2000
    type: gen1
    address: 192.168.1.31
  - name: wallbox
    expected_power_watts: 1400
    type: mqtt
    topic: wallbox/set
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: prometheus
logging:
  level: debug
events:
  topic: loadshift/events
`

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"meter qos", cfg.MQTT.QoSFor("meter"), byte(1)},
		{"retain commands", cfg.MQTT.RetainCommands, true},
		{"meter format", cfg.Meter.Format, "shelly_em"},
		{"headroom", cfg.Control.PowerHeadroomWatts, 500},
		{"increase", cfg.Control.Gate().IncreaseDelay, 90 * time.Second},
		{"decrease default", cfg.Control.Gate().DecreaseDelay, 30 * time.Second},
		{"sync", cfg.Control.SyncInterval(), 10 * time.Minute},
		{"invert", cfg.Control.Power().Invert, true},
		{"parallel", cfg.Control.Dispatch().MaxParallelCalls, 2},
		{"timeout default", cfg.Control.CommandTimeoutSeconds, 5},
		{"prometheus addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"sink", cfg.Metrics.Sinks[0].Type, "prometheus"},
		{"level", cfg.Logging.Level, "debug"},
		{"events", cfg.Events.Topic, "loadshift/events"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: got %v want %v", c.name, c.got, c.want)
		}
	}

	catalog, err := cfg.Catalog()
	require.NoError(t, err)
	require.Len(t, catalog, 3)
	assert.Equal(t, model.Gen2Switch{Address: "192.168.1.30", ID: 0}, catalog[0].Endpoint)
	assert.Equal(t, model.Gen1Relay{Address: "192.168.1.31", Channel: 0}, catalog[1].Endpoint)
	assert.Equal(t, model.MQTTSwitch{Topic: "wallbox/set"}, catalog[2].Endpoint)
	assert.True(t, cfg.NeedsMQTT())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("LS_CONTROL__MAX_PARALLEL_CALLS", "4")
	t.Setenv("LS_LOGGING__LEVEL", "warn")
	cfg, err := Load(writeConfig(t, "config.yaml", sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Control.MaxParallelCalls)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadJSON(t *testing.T) {
	data := `{
  "control": {"simulation": {"enabled": true, "power_value": -2500}},
  "devices": [{"name": "boiler", "expected_power_watts": 2000, "type": "gen1", "address": "10.0.0.2"}]
}`
	cfg, err := Load(writeConfig(t, "config.json", data))
	require.NoError(t, err)
	assert.True(t, cfg.Control.Simulation.Enabled)
	assert.Equal(t, -2500.0, cfg.Control.Simulation.Power)
	assert.Equal(t, "sample", cfg.Meter.Format)
	assert.False(t, cfg.NeedsMQTT())
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no devices", "meter:\n  topic: m\nmqtt:\n  broker: tcp://b:1883\n"},
		{"duplicate names", "meter:\n  topic: m\nmqtt:\n  broker: tcp://b:1883\ndevices:\n  - {name: a, type: gen1, address: x}\n  - {name: a, type: gen1, address: y}\n"},
		{"unknown type", "meter:\n  topic: m\nmqtt:\n  broker: tcp://b:1883\ndevices:\n  - {name: a, type: zigbee}\n"},
		{"negative power", "meter:\n  topic: m\nmqtt:\n  broker: tcp://b:1883\ndevices:\n  - {name: a, type: gen1, address: x, expected_power_watts: -5}\n"},
		{"missing meter", "devices:\n  - {name: a, type: gen1, address: x}\n"},
		{"missing broker", "meter:\n  topic: m\ndevices:\n  - {name: a, type: gen1, address: x}\n"},
		{"bad parallel", "control:\n  max_parallel_calls: -1\nmeter:\n  topic: m\nmqtt:\n  broker: tcp://b:1883\ndevices:\n  - {name: a, type: gen1, address: x}\n"},
		{"bad level", "logging:\n  level: chatty\nmeter:\n  topic: m\nmqtt:\n  broker: tcp://b:1883\ndevices:\n  - {name: a, type: gen1, address: x}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tt.data))
			assert.Error(t, err)
		})
	}
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.Error(t, err)
}
