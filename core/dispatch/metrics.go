package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	commandsTotal  *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec
	inflightCalls  prometheus.Gauge
	queuedCalls    prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, prometheus.Gauge, prometheus.Gauge) {
	total := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loadshift_commands_total",
			Help: "Device commands issued, by outcome",
		},
		[]string{"device", "direction", "result"},
	)
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loadshift_command_latency_seconds",
			Help:    "Time spent issuing a device command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	inflight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loadshift_commands_inflight",
			Help: "Device commands currently in flight",
		},
	)
	queued := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "loadshift_commands_queued",
			Help: "Device commands waiting for a free slot",
		},
	)
	return total, lat, inflight, queued
}

func init() {
	commandsTotal, commandLatency, inflightCalls, queuedCalls = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatcher metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(commandsTotal, commandLatency, inflightCalls, queuedCalls)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	commandsTotal, commandLatency, inflightCalls, queuedCalls = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
