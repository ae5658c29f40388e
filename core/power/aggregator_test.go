package power

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorLastValueWins(t *testing.T) {
	a := NewAggregator(Config{})
	require.NoError(t, a.Update("a", -1200))
	require.NoError(t, a.Update("b", 300))
	require.NoError(t, a.Update("a", -800))

	assert.Equal(t, -500.0, a.Surplus())
	assert.Equal(t, []string{"a", "b"}, a.Channels())
}

func TestAggregatorInvert(t *testing.T) {
	a := NewAggregator(Config{Invert: true})
	require.NoError(t, a.Update("a", 1500))
	require.NoError(t, a.Update("b", 250))
	assert.Equal(t, -1750.0, a.Surplus())
}

func TestAggregatorEmpty(t *testing.T) {
	assert.Equal(t, 0.0, NewAggregator(Config{}).Surplus())
}

func TestAggregatorSimulationOverridesReadings(t *testing.T) {
	cases := []struct {
		name  string
		value float64
	}{
		{"negative", -2500},
		{"zero", 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a := NewAggregator(Config{Invert: true, Simulation: Simulation{Enabled: true, Power: c.value}})
			require.NoError(t, a.Update("a", 4000))
			assert.Equal(t, c.value, a.Surplus())
		})
	}
}

func TestAggregatorRejectsMalformed(t *testing.T) {
	a := NewAggregator(Config{})
	require.NoError(t, a.Update("a", -100))

	assert.ErrorIs(t, a.Update("", 50), ErrInvalidSample)
	assert.ErrorIs(t, a.Update("a", math.NaN()), ErrInvalidSample)
	assert.ErrorIs(t, a.Update("b", math.Inf(1)), ErrInvalidSample)
	assert.Equal(t, -100.0, a.Surplus())
}
