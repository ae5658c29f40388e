package meter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/kilianp07/loadshift/core/factory"
	"github.com/kilianp07/loadshift/core/model"
)

type sampleConf struct {
	// DefaultChannel is used when the payload has no channel. The topic is
	// used when both are empty.
	DefaultChannel string `json:"default_channel"`
}

type samplePayload struct {
	Channel any      `json:"channel"`
	Power   *float64 `json:"power"`
	TS      int64    `json:"ts"`
}

func newSampleDecoder(conf map[string]any) (Decoder, error) {
	var c sampleConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return func(topic string, payload []byte, received time.Time) ([]model.PowerSample, error) {
		var p samplePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if p.Power == nil {
			return nil, fmt.Errorf("%w: missing power", ErrMalformed)
		}
		ch, err := channelName(p.Channel)
		if err != nil {
			return nil, err
		}
		if ch == "" {
			ch = c.DefaultChannel
		}
		if ch == "" {
			ch = topic
		}
		ts := received
		if p.TS > 0 {
			ts = time.UnixMilli(p.TS)
		}
		return []model.PowerSample{{Channel: ch, Watts: *p.Power, Timestamp: ts}}, nil
	}, nil
}

// channelName accepts string and integer channel identifiers.
func channelName(v any) (string, error) {
	switch c := v.(type) {
	case nil:
		return "", nil
	case string:
		return c, nil
	case float64:
		if c != float64(int64(c)) {
			return "", fmt.Errorf("%w: channel %v is not an integer", ErrMalformed, c)
		}
		return strconv.FormatInt(int64(c), 10), nil
	default:
		return "", fmt.Errorf("%w: channel of type %T", ErrMalformed, v)
	}
}
