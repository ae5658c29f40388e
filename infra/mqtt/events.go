package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/logger"
)

// EventPublisher forwards state changes to an MQTT topic as JSON.
type EventPublisher struct {
	pub     Publisher
	topic   string
	qos     byte
	timeout time.Duration
	log     logger.Logger
}

// NewEventPublisher returns a publisher for topic.
func NewEventPublisher(pub Publisher, topic string, qos byte, log logger.Logger) *EventPublisher {
	return &EventPublisher{pub: pub, topic: topic, qos: qos, timeout: 5 * time.Second, log: log}
}

// Run forwards StateChangeEvents from sub until ctx is done or sub is closed.
// Other event kinds are skipped. Publish failures are logged.
func (p *EventPublisher) Run(ctx context.Context, sub <-chan events.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			sc, ok := ev.(events.StateChangeEvent)
			if !ok {
				continue
			}
			payload, err := json.Marshal(sc)
			if err != nil {
				p.log.Errorf("encode event: %v", err)
				continue
			}
			pctx, cancel := context.WithTimeout(ctx, p.timeout)
			if err := p.pub.Publish(pctx, p.topic, p.qos, false, payload); err != nil {
				p.log.Warnf("publish event for %s: %v", sc.Device, err)
			}
			cancel()
		}
	}
}
