// Package status exposes the controller state over HTTP.
package status

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/loadshift/core/controller"
)

// Path is where the handler is mounted.
const Path = "/api/status"

// Source provides a consistent view of the controller.
type Source interface {
	Snapshot() controller.Snapshot
}

type Device struct {
	Name               string `json:"name"`
	ExpectedPowerWatts int    `json:"expected_power_watts"`
	Endpoint           string `json:"endpoint"`
	Managed            bool   `json:"managed"`
	Assigned           string `json:"assigned,omitempty"`
	Presumed           string `json:"presumed"`
	RequiresResync     bool   `json:"requires_resync"`
}

type Pending struct {
	Step            string    `json:"step"`
	TargetDrawWatts int       `json:"target_draw_watts"`
	On              []string  `json:"on"`
	ActivationTime  time.Time `json:"activation_time"`
}

type Status struct {
	SurplusWatts      float64   `json:"surplus_watts"`
	ExpectedDrawWatts int       `json:"expected_draw_watts"`
	Channels          []string  `json:"channels"`
	Devices           []Device  `json:"devices"`
	Pending           []Pending `json:"pending"`
}

// FromSnapshot converts a controller snapshot. When device is not empty only
// that device is listed.
func FromSnapshot(s controller.Snapshot, device string) Status {
	out := Status{
		SurplusWatts:      s.SurplusWatts,
		ExpectedDrawWatts: int(s.Applied.ExpectedPowerDraw),
		Channels:          append([]string{}, s.Channels...),
		Devices:           []Device{},
		Pending:           []Pending{},
	}
	for _, d := range s.Devices {
		if device != "" && d.Name != device {
			continue
		}
		entry := Device{
			Name:               d.Name,
			ExpectedPowerWatts: d.ExpectedPowerWatts,
			Endpoint:           d.Endpoint.Kind(),
			Managed:            d.Managed(),
			Presumed:           d.PresumedState.String(),
			RequiresResync:     d.RequiresResync,
		}
		if dir, ok := s.Applied.Direction(d.Name); ok {
			entry.Assigned = dir.String()
		}
		out.Devices = append(out.Devices, entry)
	}
	for _, p := range s.Pending {
		on := p.Target.On()
		if on == nil {
			on = []string{}
		}
		out.Pending = append(out.Pending, Pending{
			Step:            p.Step.String(),
			TargetDrawWatts: int(p.TargetDraw()),
			On:              on,
			ActivationTime:  p.ActivationTime,
		})
	}
	return out
}

// NewStatusHandler returns an HTTP handler answering GET /api/status with
// the JSON encoded controller state. The optional device query parameter
// narrows the device list.
func NewStatusHandler(src Source) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		st := FromSnapshot(src.Snapshot(), r.URL.Query().Get("device"))
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
