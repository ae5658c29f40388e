package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/infra/meter"
)

// SampleHandler consumes decoded samples. A returned error is fatal.
type SampleHandler func(model.PowerSample) error

// MeterSubscription feeds meter messages into a SampleHandler.
type MeterSubscription struct {
	sub    Subscriber
	topic  string
	qos    byte
	decode meter.Decoder
	handle SampleHandler
	log    logger.Logger
	now    func() time.Time
}

// NewMeterSubscription wires topic to handle through decode.
func NewMeterSubscription(sub Subscriber, topic string, qos byte, decode meter.Decoder, handle SampleHandler, log logger.Logger) *MeterSubscription {
	return &MeterSubscription{sub: sub, topic: topic, qos: qos, decode: decode, handle: handle, log: log, now: time.Now}
}

// Run subscribes and blocks until ctx is done or the handler fails.
func (m *MeterSubscription) Run(ctx context.Context) error {
	fatal := make(chan error, 1)
	err := m.sub.Subscribe(m.topic, m.qos, func(topic string, payload []byte) {
		samples, err := m.decode(topic, payload, m.now())
		if err != nil {
			m.log.Debugf("ignoring meter message on %s: %v", topic, err)
			return
		}
		for _, s := range samples {
			if err := m.handle(s); err != nil {
				select {
				case fatal <- err:
				default:
				}
				return
			}
		}
	})
	if err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return nil
	case err := <-fatal:
		return err
	}
}
