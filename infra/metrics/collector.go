package metrics

import (
	"context"

	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/logger"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
)

// RunEventCollector records controller events into sink until ctx is done or
// sub is closed. Sink writes happen here so the control loop never waits on
// them.
func RunEventCollector(ctx context.Context, sub <-chan events.Event, sink coremetrics.MetricsSink, log logger.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub:
			if !ok {
				return nil
			}
			if err := record(sink, ev); err != nil {
				log.Warnf("record %s event: %v", ev.Kind(), err)
			}
		}
	}
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.CommandEvent:
		return sink.RecordCommand(coremetrics.CommandEventFromResult(e.Result))
	case events.AllocationEvent:
		if r, ok := sink.(coremetrics.AllocationRecorder); ok {
			return r.RecordAllocation(coremetrics.AllocationEvent{
				Step:              e.Step,
				ExpectedDrawWatts: int(e.Allocation.ExpectedPowerDraw),
				On:                e.Allocation.On(),
				Time:              e.Time,
			})
		}
	case events.PowerEvent:
		if r, ok := sink.(coremetrics.PowerRecorder); ok {
			return r.RecordPower(coremetrics.PowerEvent{
				SurplusWatts:      e.SurplusWatts,
				ExpectedDrawWatts: int(e.ExpectedDrawWatts),
				Pending:           e.Pending,
				Time:              e.Time,
			})
		}
	}
	return nil
}
