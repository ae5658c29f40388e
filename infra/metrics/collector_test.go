package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadshift/core/events"
	coremetrics "github.com/kilianp07/loadshift/core/metrics"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/infra/logger"
)

type captureSink struct {
	commands    []coremetrics.CommandEvent
	allocations []coremetrics.AllocationEvent
	power       []coremetrics.PowerEvent
}

func (c *captureSink) RecordCommand(ev coremetrics.CommandEvent) error {
	c.commands = append(c.commands, ev)
	return errors.New("sink down")
}

func (c *captureSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	c.allocations = append(c.allocations, ev)
	return nil
}

func (c *captureSink) RecordPower(ev coremetrics.PowerEvent) error {
	c.power = append(c.power, ev)
	return nil
}

func TestRunEventCollector(t *testing.T) {
	now := time.Now()
	sub := make(chan events.Event, 4)
	sub <- events.CommandEvent{Result: model.CommandResult{
		Request:  model.CommandRequest{ID: "c1", Device: model.Device{Name: "boiler"}, Direction: model.DirectionOn},
		Started:  now,
		Finished: now.Add(time.Second),
	}}
	sub <- events.AllocationEvent{
		Allocation: model.Allocation{
			Assignments:       []model.Assignment{{Device: "boiler", Direction: model.DirectionOn}, {Device: "pump", Direction: model.DirectionOff}},
			ExpectedPowerDraw: 2000,
		},
		Step: model.StepUp,
		Time: now,
	}
	sub <- events.PowerEvent{SurplusWatts: -2500, ExpectedDrawWatts: 2000, Time: now}
	sub <- events.NewStateChangeEvent("boiler", model.DirectionOn, false, 2000, now)
	close(sub)

	sink := &captureSink{}
	require.NoError(t, RunEventCollector(context.Background(), sub, sink, logger.NopLogger{}))

	require.Len(t, sink.commands, 1)
	assert.Equal(t, "boiler", sink.commands[0].Device)
	assert.True(t, sink.commands[0].Success)
	assert.Equal(t, time.Second, sink.commands[0].Latency)
	require.Len(t, sink.allocations, 1)
	assert.Equal(t, []string{"boiler"}, sink.allocations[0].On)
	assert.Equal(t, 2000, sink.allocations[0].ExpectedDrawWatts)
	require.Len(t, sink.power, 1)
	assert.Equal(t, -2500.0, sink.power[0].SurplusWatts)
}

func TestRunEventCollectorStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, RunEventCollector(ctx, make(chan events.Event), coremetrics.NopSink{}, logger.NopLogger{}))
}
