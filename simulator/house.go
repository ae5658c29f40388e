package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Load is a simulated switchable consumer.
type Load struct {
	Topic string
	Watts float64
	On    bool
}

// House models the grid connection point: a base balance plus the loads
// currently switched on.
type House struct {
	mu    sync.Mutex
	base  float64
	noise float64
	loads map[string]*Load
	rng   *rand.Rand
}

// NewHouse creates a house with every load off.
func NewHouse(base, noise float64, loads []Load, rng *rand.Rand) *House {
	h := &House{base: base, noise: noise, loads: make(map[string]*Load, len(loads)), rng: rng}
	for i := range loads {
		l := loads[i]
		l.On = false
		h.loads[l.Topic] = &l
	}
	return h
}

// Topics returns the load command topics.
func (h *House) Topics() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.loads))
	for t := range h.loads {
		out = append(out, t)
	}
	return out
}

// Apply switches the load bound to topic. Payloads other than "on" and
// "off" are rejected.
func (h *House) Apply(topic string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.loads[topic]
	if !ok {
		return fmt.Errorf("no load on %s", topic)
	}
	switch string(payload) {
	case "on":
		l.On = true
	case "off":
		l.On = false
	default:
		return fmt.Errorf("unexpected payload %q on %s", payload, topic)
	}
	return nil
}

// Reading returns the current grid balance in watts.
func (h *House) Reading() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	w := h.base
	for _, l := range h.loads {
		if l.On {
			w += l.Watts
		}
	}
	if h.noise > 0 && h.rng != nil {
		w += (h.rng.Float64()*2 - 1) * h.noise
	}
	return w
}

// Encode renders a reading in the given meter format. The shelly_em frame
// spreads the reading evenly over three phases.
func Encode(format string, watts float64, at time.Time) ([]byte, error) {
	switch format {
	case "sample":
		return json.Marshal(map[string]any{"channel": "grid", "power": watts, "ts": at.UnixMilli()})
	case "shelly_em":
		phase := watts / 3
		return json.Marshal(map[string]any{
			"method": "NotifyStatus",
			"params": map[string]any{
				"ts": float64(at.UnixMilli()) / 1000,
				"em:0": map[string]float64{
					"a_act_power": phase,
					"b_act_power": phase,
					"c_act_power": phase,
				},
			},
		})
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
