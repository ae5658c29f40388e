package scenarios

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/loadshift/core/controller"
	"github.com/kilianp07/loadshift/core/dispatch"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/infra/metrics"
)

var errScripted = errors.New("scripted failure")

// scriptedCommander records every command and fails for the listed devices.
type scriptedCommander struct {
	mu   sync.Mutex
	fail map[string]bool
	log  []string
}

func (c *scriptedCommander) IssueCommand(_ context.Context, dev model.Device, dir model.Direction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = append(c.log, dev.Name+"="+dir.String())
	if c.fail[dev.Name] {
		return errScripted
	}
	return nil
}

// RunScenario replays the steps through a controller backed by a real
// dispatcher and checks the issued commands and the final allocation.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	cmd := &scriptedCommander{fail: map[string]bool{}}
	for _, name := range sc.FailDevices {
		cmd.fail[name] = true
	}
	var failed int
	var mu sync.Mutex
	calls, err := dispatch.NewCallDispatcher(cmd, dispatch.Config{MaxParallelCalls: 1, CommandTimeoutSeconds: 1}, logger.NopLogger{},
		func(r model.CommandResult) {
			mu.Lock()
			defer mu.Unlock()
			if !r.Success() {
				failed++
			}
			if err := sink.RecordCommand(coremetrics.CommandEventFromResult(r)); err != nil {
				t.Errorf("record command: %v", err)
			}
		})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}

	catalog := make([]model.Device, len(sc.Devices))
	for i, d := range sc.Devices {
		catalog[i] = d.ToModel()
	}
	start := time.Unix(0, 0).UTC()
	now := start
	ctl, err := controller.New(controller.Config{Gate: sc.Control.ToGate()}, catalog, calls, logger.NopLogger{},
		controller.WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	for _, st := range sc.Steps {
		now = start.Add(time.Duration(st.AtSeconds) * time.Second)
		if st.Resync {
			ctl.Resync()
		}
		ch := st.Channel
		if ch == "" {
			ch = "grid"
		}
		if err := ctl.HandleSample(model.PowerSample{Channel: ch, Watts: st.Watts, Timestamp: now}); err != nil {
			t.Fatalf("step at %ds: %v", st.AtSeconds, err)
		}
	}
	if err := calls.Close(); err != nil {
		t.Fatalf("close dispatcher: %v", err)
	}

	if !slices.Equal(cmd.log, sc.Expected.Commands) {
		t.Errorf("scenario %s expected commands %v, got %v", sc.Name, sc.Expected.Commands, cmd.log)
	}
	if failed != sc.Expected.Failed {
		t.Errorf("scenario %s expected %d failed, got %d", sc.Name, sc.Expected.Failed, failed)
	}
	if got := counterSum(t, reg, "loadshift_resync_commands_total"); got != float64(sc.Expected.Resyncs) {
		t.Errorf("scenario %s expected %d resyncs, got %v", sc.Name, sc.Expected.Resyncs, got)
	}
	on := ctl.Snapshot().Applied.On()
	if !slices.Equal(on, sc.Expected.FinalOn) {
		t.Errorf("scenario %s expected final %v, got %v", sc.Name, sc.Expected.FinalOn, on)
	}
}

func counterSum(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sum float64
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}
