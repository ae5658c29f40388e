package controller

import "github.com/prometheus/client_golang/prometheus"

var (
	surplusWatts       prometheus.Gauge
	expectedDrawWatts  prometheus.Gauge
	pendingTransitions prometheus.Gauge
	allocationsApplied *prometheus.CounterVec
)

func newCollectors() (prometheus.Gauge, prometheus.Gauge, prometheus.Gauge, *prometheus.CounterVec) {
	surplus := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loadshift_surplus_watts",
		Help: "Aggregated meter reading, negative when exporting",
	})
	draw := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loadshift_expected_draw_watts",
		Help: "Expected draw of the applied allocation",
	})
	pending := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "loadshift_pending_transitions",
		Help: "Candidate allocations waiting for their dwell time",
	})
	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshift_allocations_applied_total",
		Help: "Allocations promoted by the hysteresis gate",
	}, []string{"direction"})
	return surplus, draw, pending, applied
}

func init() {
	surplusWatts, expectedDrawWatts, pendingTransitions, allocationsApplied = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers controller metrics on reg, or on the default
// registerer when reg is nil.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(surplusWatts, expectedDrawWatts, pendingTransitions, allocationsApplied)
}

// ResetMetrics recreates the collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	surplusWatts, expectedDrawWatts, pendingTransitions, allocationsApplied = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
