package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/core/model"
)

// PromSink exposes per-device state derived from command results.
type PromSink struct {
	deviceOn *prometheus.GaugeVec
	resyncs  *prometheus.CounterVec
}

// NewPromSink registers the sink collectors on the default registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the sink collectors on reg. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	deviceOn := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loadshift_device_on",
		Help: "1 when the last successful command switched the device on",
	}, []string{"device"})
	resyncs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "loadshift_resync_commands_total",
		Help: "Commands re-asserting an already presumed state",
	}, []string{"device"})

	if err := reg.Register(deviceOn); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		deviceOn = are.ExistingCollector.(*prometheus.GaugeVec)
	}
	if err := reg.Register(resyncs); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		resyncs = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return &PromSink{deviceOn: deviceOn, resyncs: resyncs}, nil
}

// RecordCommand updates the device gauge on success and counts resyncs.
func (s *PromSink) RecordCommand(ev coremetrics.CommandEvent) error {
	if ev.Resync {
		s.resyncs.WithLabelValues(ev.Device).Inc()
	}
	if !ev.Success {
		return nil
	}
	v := 0.0
	if ev.Direction == model.DirectionOn {
		v = 1
	}
	s.deviceOn.WithLabelValues(ev.Device).Set(v)
	return nil
}
