package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/loadshift/core/controller"
	"github.com/kilianp07/loadshift/core/model"
)

type fixedSource controller.Snapshot

func (f fixedSource) Snapshot() controller.Snapshot { return controller.Snapshot(f) }

func sampleSnapshot() controller.Snapshot {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return controller.Snapshot{
		SurplusWatts: -2400,
		Applied: model.Allocation{
			Assignments: []model.Assignment{
				{Device: "boiler", Direction: model.DirectionOn},
				{Device: "heater", Direction: model.DirectionOff},
			},
			ExpectedPowerDraw: 1000,
		},
		Pending: []model.PendingTransition{{
			Target: model.Allocation{
				Assignments:       []model.Assignment{{Device: "heater", Direction: model.DirectionOn}},
				ExpectedPowerDraw: 2000,
			},
			Step:           model.StepUp,
			CreatedAt:      at,
			ActivationTime: at.Add(time.Minute),
		}},
		Devices: []model.Device{
			{Name: "boiler", ExpectedPowerWatts: 1000, Endpoint: model.Gen1Relay{Address: "10.0.0.2"}, PresumedState: model.PresumedOn},
			{Name: "heater", ExpectedPowerWatts: 2000, Endpoint: model.Gen2Switch{Address: "10.0.0.3"}, PresumedState: model.PresumedOff, RequiresResync: true},
			{Name: "lamp", Endpoint: model.MQTTSwitch{Topic: "lamp/set"}},
		},
		Channels: []string{"a", "b", "c"},
	}
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, Status) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var st Status
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return rr, st
}

func TestStatusHandler_Basic(t *testing.T) {
	h := NewStatusHandler(fixedSource(sampleSnapshot()))
	rr, st := get(t, h, Path)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if st.SurplusWatts != -2400 || st.ExpectedDrawWatts != 1000 {
		t.Fatalf("unexpected totals %#v", st)
	}
	if len(st.Devices) != 3 {
		t.Fatalf("expected 3 devices got %d", len(st.Devices))
	}
	boiler := st.Devices[0]
	if boiler.Endpoint != "gen1" || boiler.Assigned != "on" || boiler.Presumed != "on" || !boiler.Managed {
		t.Fatalf("unexpected boiler entry %#v", boiler)
	}
	lamp := st.Devices[2]
	if lamp.Managed || lamp.Assigned != "" || lamp.Presumed != "unknown" {
		t.Fatalf("unexpected lamp entry %#v", lamp)
	}
	if len(st.Pending) != 1 || st.Pending[0].Step != "up" || st.Pending[0].TargetDrawWatts != 2000 {
		t.Fatalf("unexpected pending %#v", st.Pending)
	}
	if len(st.Pending[0].On) != 1 || st.Pending[0].On[0] != "heater" {
		t.Fatalf("unexpected pending devices %#v", st.Pending[0].On)
	}
}

func TestStatusHandler_FilterDevice(t *testing.T) {
	h := NewStatusHandler(fixedSource(sampleSnapshot()))
	_, st := get(t, h, Path+"?device=heater")
	if len(st.Devices) != 1 || st.Devices[0].Name != "heater" || !st.Devices[0].RequiresResync {
		t.Fatalf("unexpected filter result %#v", st.Devices)
	}
}

func TestStatusHandler_Empty(t *testing.T) {
	h := NewStatusHandler(fixedSource(controller.Snapshot{}))
	rr, st := get(t, h, Path)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if st.Devices == nil || len(st.Devices) != 0 || st.Pending == nil {
		t.Fatalf("expected empty lists got %#v", st)
	}
}

func TestStatusHandler_MethodNotAllowed(t *testing.T) {
	h := NewStatusHandler(fixedSource(controller.Snapshot{}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, Path, nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}
