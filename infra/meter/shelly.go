package meter

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/loadshift/core/factory"
	"github.com/kilianp07/loadshift/core/model"
)

type shellyEMConf struct {
	Component string `json:"component"`
}

type shellyFrame struct {
	Method string                     `json:"method"`
	Params map[string]json.RawMessage `json:"params"`
}

type shellyEM struct {
	A *float64 `json:"a_act_power"`
	B *float64 `json:"b_act_power"`
	C *float64 `json:"c_act_power"`
}

func newShellyEMDecoder(conf map[string]any) (Decoder, error) {
	c := shellyEMConf{Component: "em:0"}
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return func(_ string, payload []byte, received time.Time) ([]model.PowerSample, error) {
		var f shellyFrame
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if f.Method != "NotifyStatus" {
			return nil, fmt.Errorf("%w: method %q", ErrMalformed, f.Method)
		}
		raw, ok := f.Params[c.Component]
		if !ok {
			return nil, fmt.Errorf("%w: no %s in params", ErrMalformed, c.Component)
		}
		var em shellyEM
		if err := json.Unmarshal(raw, &em); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		ts := received
		if rawTS, ok := f.Params["ts"]; ok {
			var secs float64
			if err := json.Unmarshal(rawTS, &secs); err == nil && secs > 0 {
				whole, frac := math.Modf(secs)
				ts = time.Unix(int64(whole), int64(frac*1e9))
			}
		}

		var out []model.PowerSample
		for _, ph := range []struct {
			ch string
			v  *float64
		}{{"a", em.A}, {"b", em.B}, {"c", em.C}} {
			if ph.v != nil {
				out = append(out, model.PowerSample{Channel: ph.ch, Watts: *ph.v, Timestamp: ts})
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: no phase power in %s", ErrMalformed, c.Component)
		}
		return out, nil
	}, nil
}
