package metrics

import "github.com/kilianp07/loadshift/core/factory"

// Config lists the sinks to build. An empty list yields a NopSink.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusAddr is the listen address of the /metrics endpoint. Empty
	// disables the HTTP server.
	PrometheusAddr string `json:"prometheus_addr"`
}
