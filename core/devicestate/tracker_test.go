package devicestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/loadshift/core/model"
)

func catalog() []model.Device {
	return []model.Device{
		{Name: "boiler", ExpectedPowerWatts: 2000, Endpoint: model.Gen1Relay{Address: "10.0.0.2"}},
		{Name: "pump", ExpectedPowerWatts: 800, Endpoint: model.Gen2Switch{Address: "10.0.0.3", ID: 1}},
	}
}

func TestUnknownStateAlwaysSends(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)

	dec, err := tr.ShouldSend("boiler", model.DirectionOff)
	require.NoError(t, err)
	assert.True(t, dec.Send)
	assert.False(t, dec.Resync)

	d, _ := tr.Device("boiler")
	assert.Equal(t, model.PresumedOff, d.PresumedState)
}

func TestMatchingStateSuppressed(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)

	_, err = tr.ShouldSend("boiler", model.DirectionOn)
	require.NoError(t, err)
	dec, err := tr.ShouldSend("boiler", model.DirectionOn)
	require.NoError(t, err)
	assert.False(t, dec.Send)

	dec, err = tr.ShouldSend("boiler", model.DirectionOff)
	require.NoError(t, err)
	assert.True(t, dec.Send)
}

func TestResyncSendsOnceAndClears(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)

	_, _ = tr.ShouldSend("pump", model.DirectionOn)
	tr.MarkAllForResync()
	for _, d := range tr.Devices() {
		assert.True(t, d.RequiresResync)
	}

	dec, err := tr.ShouldSend("pump", model.DirectionOn)
	require.NoError(t, err)
	assert.True(t, dec.Send)
	assert.True(t, dec.Resync)

	dec, err = tr.ShouldSend("pump", model.DirectionOn)
	require.NoError(t, err)
	assert.False(t, dec.Send)

	d, _ := tr.Device("pump")
	assert.False(t, d.RequiresResync)
	assert.Equal(t, model.PresumedOn, d.PresumedState)
}

func TestStateChangeClearsResync(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)
	tr.MarkAllForResync()

	dec, err := tr.ShouldSend("boiler", model.DirectionOn)
	require.NoError(t, err)
	assert.True(t, dec.Send)
	assert.False(t, dec.Resync)
	d, _ := tr.Device("boiler")
	assert.False(t, d.RequiresResync)
}

func TestUnknownDevice(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)
	_, err = tr.ShouldSend("heater", model.DirectionOn)
	assert.ErrorIs(t, err, ErrUnknownDevice)
}

func TestDuplicateNamesRejected(t *testing.T) {
	c := append(catalog(), model.Device{Name: "pump", ExpectedPowerWatts: 10})
	_, err := NewTracker(c)
	assert.Error(t, err)
}

func TestDevicesKeepCatalogOrder(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)
	devs := tr.Devices()
	require.Len(t, devs, 2)
	assert.Equal(t, "boiler", devs[0].Name)
	assert.Equal(t, "pump", devs[1].Name)
	assert.Equal(t, model.PresumedUnknown, devs[1].PresumedState)
}

func TestInvalidDirectionLeavesState(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)

	dec, err := tr.ShouldSend("boiler", model.Direction(7))
	assert.ErrorIs(t, err, ErrInvalidDirection)
	assert.False(t, dec.Send)

	d, _ := tr.Device("boiler")
	assert.Equal(t, model.PresumedUnknown, d.PresumedState)
}

func TestRollbackRestoresPreviousState(t *testing.T) {
	tr, err := NewTracker(catalog())
	require.NoError(t, err)

	dec, err := tr.ShouldSend("boiler", model.DirectionOn)
	require.NoError(t, err)
	tr.Rollback(dec)
	d, _ := tr.Device("boiler")
	assert.Equal(t, model.PresumedUnknown, d.PresumedState)

	_, err = tr.ShouldSend("pump", model.DirectionOff)
	require.NoError(t, err)
	tr.MarkAllForResync()
	dec, err = tr.ShouldSend("pump", model.DirectionOff)
	require.NoError(t, err)
	require.True(t, dec.Resync)
	tr.Rollback(dec)

	d, _ = tr.Device("pump")
	assert.True(t, d.RequiresResync)
	assert.Equal(t, model.PresumedOff, d.PresumedState)

	// A suppressed decision has nothing to undo.
	dec, err = tr.ShouldSend("pump", model.DirectionOff)
	require.NoError(t, err)
	require.True(t, dec.Send)
	skipped, err := tr.ShouldSend("pump", model.DirectionOff)
	require.NoError(t, err)
	require.False(t, skipped.Send)
	tr.Rollback(skipped)
	d, _ = tr.Device("pump")
	assert.False(t, d.RequiresResync)
}
