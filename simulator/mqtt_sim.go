package main

import (
	"context"
	"time"

	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/infra/mqtt"
)

// bindLoads subscribes the house to every load command topic.
func bindLoads(sub mqtt.Subscriber, h *House, log logger.Logger) error {
	for _, topic := range h.Topics() {
		if err := sub.Subscribe(topic, 0, func(topic string, payload []byte) {
			if err := h.Apply(topic, payload); err != nil {
				log.Warnf("%v", err)
				return
			}
			log.Infof("%s switched %s", topic, payload)
		}); err != nil {
			return err
		}
	}
	return nil
}

// publishReadings publishes the house balance every interval until ctx is
// done.
func publishReadings(ctx context.Context, pub mqtt.Publisher, h *House, cfg Config, log logger.Logger) error {
	t := time.NewTicker(cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-t.C:
			w := h.Reading()
			payload, err := Encode(cfg.Format, w, now)
			if err != nil {
				return err
			}
			pctx, cancel := context.WithTimeout(ctx, cfg.Interval)
			err = pub.Publish(pctx, cfg.MeterTopic, 0, false, payload)
			cancel()
			if err != nil {
				log.Warnf("publish reading: %v", err)
				continue
			}
			log.Debugf("published %.0fW", w)
		}
	}
}
