package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/factory"
	"github.com/kilianp07/loadshift/core/model"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/infra/meter"
)

func TestCommanderPublishesState(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	cmd := NewCommander(cli, 1, true)
	boiler := model.Device{Name: "boiler", ExpectedPowerWatts: 2000, Endpoint: model.MQTTSwitch{Topic: "home/boiler/set"}}

	require.NoError(t, cmd.IssueCommand(context.Background(), boiler, model.DirectionOn))
	require.NoError(t, cmd.IssueCommand(context.Background(), boiler, model.DirectionOff))
	require.Len(t, mc.published, 2)
	assert.Equal(t, "home/boiler/set", mc.published[0].topic)
	assert.Equal(t, "on", string(mc.published[0].payload))
	assert.Equal(t, "off", string(mc.published[1].payload))
	assert.Equal(t, byte(1), mc.published[0].qos)
	assert.True(t, mc.published[0].retained)

	err := cmd.IssueCommand(context.Background(), boiler, model.Direction(9))
	assert.Error(t, err)
	relay := model.Device{Name: "pump", Endpoint: model.Gen1Relay{Address: "10.0.0.5"}}
	assert.Error(t, cmd.IssueCommand(context.Background(), relay, model.DirectionOn))
	assert.Len(t, mc.published, 2)
}

func TestMeterSubscriptionFeedsSamples(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	dec, err := meter.New(factory.ModuleConfig{Type: "sample"})
	require.NoError(t, err)

	got := make(chan model.PowerSample, 4)
	sub := NewMeterSubscription(cli, "meter/grid", 0, dec, func(s model.PowerSample) error {
		got <- s
		return nil
	}, logger.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()
	require.Eventually(t, func() bool {
		mc.mu.Lock()
		defer mc.mu.Unlock()
		return len(mc.subscribed) == 1
	}, time.Second, time.Millisecond)

	mc.deliver("meter/grid", []byte(`garbage`))
	mc.deliver("meter/grid", []byte(`{"channel":"l1","power":-800}`))
	s := <-got
	assert.Equal(t, "l1", s.Channel)
	assert.Equal(t, -800.0, s.Watts)
	assert.Empty(t, got)

	cancel()
	assert.NoError(t, <-done)
}

func TestMeterSubscriptionStopsOnFatalError(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	dec, err := meter.New(factory.ModuleConfig{})
	require.NoError(t, err)
	boom := errors.New("unknown device")
	sub := NewMeterSubscription(cli, "meter/grid", 0, dec, func(model.PowerSample) error { return boom }, logger.NopLogger{})

	done := make(chan error, 1)
	go func() { done <- sub.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		mc.mu.Lock()
		defer mc.mu.Unlock()
		return len(mc.subscribed) == 1
	}, time.Second, time.Millisecond)
	mc.deliver("meter/grid", []byte(`{"power":1}`))
	assert.ErrorIs(t, <-done, boom)
}

func TestEventPublisherForwardsStateChanges(t *testing.T) {
	mc := &mockClient{}
	cli := withMock(t, mc)
	pub := NewEventPublisher(cli, "loadshift/events", 0, logger.NopLogger{})

	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ch := make(chan events.Event, 3)
	ch <- events.PowerEvent{SurplusWatts: -100}
	ch <- events.NewStateChangeEvent("boiler", model.DirectionOn, false, 2000, at)
	close(ch)
	require.NoError(t, pub.Run(context.Background(), ch))

	require.Len(t, mc.published, 1)
	assert.Equal(t, "loadshift/events", mc.published[0].topic)
	var body map[string]any
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &body))
	assert.Equal(t, "boiler", body["device"])
	assert.Equal(t, "on", body["direction"])
	assert.Equal(t, 2000.0, body["expected_draw_watts"])
	assert.Equal(t, "2025-06-01T12:00:00Z", body["time"])
}
