package report

import (
	"testing"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

var oneColumn = []Column{{Channel: "0001", Label: "CH0001"}}

// powerSeries emits one sample per minute; runs alternate off/on starting with off.
func powerSeries(runs ...int) []series.Sample {
	var out []series.Sample
	minute := 0
	for i, n := range runs {
		p := 0.0
		if i%2 == 1 {
			p = 10.0
		}
		for j := 0; j < n; j++ {
			out = append(out, series.Sample{
				Time:         t0.Add(time.Duration(minute) * time.Minute),
				Temperatures: []*float64{series.Float(4)},
				Power:        series.Power{Power: series.Float(p)},
			})
			minute++
		}
	}
	return out
}

func TestAggregateRejectsBadWindow(t *testing.T) {
	_, err := Aggregate(nil, oneColumn, t0, t0)
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, errors.Kind(err))

	_, err = Aggregate(nil, oneColumn, t0.Add(time.Hour), t0)
	require.Error(t, err)
}

func TestCyclingExcludesEdgeSegments(t *testing.T) {
	// off 3, on 5, off 4, on 5, off 4, on 2
	samples := powerSeries(3, 5, 4, 5, 4, 2)
	res, err := Aggregate(samples, oneColumn, t0, t0.Add(24*time.Hour))
	require.NoError(t, err)

	c := res.Cycling
	assert.Equal(t, 6, c.TotalSegments)
	assert.Equal(t, 2, c.Cycles)
	assert.Equal(t, 2, c.OnSegments)
	assert.Equal(t, 2, c.OffSegments)
	// A run of n one-minute samples spans n-1 minutes.
	assert.InDelta(t, 4.0, c.AvgOnMinutes, 1e-9)
	assert.InDelta(t, 3.0, c.AvgOffMinutes, 1e-9)
	assert.InDelta(t, 4.0/7.0*100, c.OnPercentage, 1e-9)
	assert.True(t, c.PowerAvailable)
}

func TestCyclingShortWindow(t *testing.T) {
	res, err := Aggregate(powerSeries(3, 3), oneColumn, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cycling.Cycles)
	assert.Zero(t, res.Cycling.AvgOnMinutes)
	assert.Zero(t, res.Cycling.OnPercentage)
}

func TestMissingPowerCountsAsOff(t *testing.T) {
	samples := powerSeries(2, 2, 2)
	samples[4].Power.Power = nil
	samples[5].Power.Power = nil
	res, err := Aggregate(samples, oneColumn, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Cycling.TotalSegments)
	assert.Equal(t, 1, res.Cycling.Cycles)
}

func TestChannelStats(t *testing.T) {
	cols := []Column{{Channel: "0001", Label: "Fridge"}, {Channel: "0002", Label: "CH0002"}}
	samples := []series.Sample{
		{Time: t0, Temperatures: []*float64{series.Float(2), nil}},
		{Time: t0.Add(time.Minute), Temperatures: []*float64{series.Float(4), nil}},
		{Time: t0.Add(2 * time.Minute), Temperatures: []*float64{nil, nil}},
		// Outside the window.
		{Time: t0.Add(2 * time.Hour), Temperatures: []*float64{series.Float(100), series.Float(1)}},
	}

	res, err := Aggregate(samples, cols, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, res.Channels, 2)
	assert.Equal(t, 3, res.Samples)
	assert.Equal(t, 60, res.ElapsedMinutes)

	first := res.Channels[0]
	assert.Equal(t, "Fridge", first.Label)
	assert.Equal(t, 2, first.Count)
	require.NotNil(t, first.Mean)
	assert.InDelta(t, 3.0, *first.Mean, 1e-9)
	assert.InDelta(t, 1.0, *first.StdDev, 1e-9)
	assert.False(t, first.NoData)

	second := res.Channels[1]
	assert.True(t, second.NoData)
	assert.Nil(t, second.Mean)
}

func TestWindowBoundsInclusive(t *testing.T) {
	samples := powerSeries(5)
	res, err := Aggregate(samples, oneColumn, t0.Add(time.Minute), t0.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Samples)
}

func TestEnergyExtrapolation(t *testing.T) {
	samples := []series.Sample{
		{Time: t0, Temperatures: []*float64{nil}, Power: series.Power{Energy: series.Float(100)}},
		{Time: t0.Add(30 * time.Minute), Temperatures: []*float64{nil}, Power: series.Power{Energy: nil}},
		{Time: t0.Add(time.Hour), Temperatures: []*float64{nil}, Power: series.Power{Energy: series.Float(110)}},
	}

	res, err := Aggregate(samples, oneColumn, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, res.Energy.DeltaWh)
	assert.Equal(t, 10.0, *res.Energy.DeltaWh)
	assert.Equal(t, 240.0, *res.Energy.DailyWh)
	assert.Equal(t, 3600.0, res.Energy.Seconds)
	assert.InDelta(t, 105.0, *res.PowerAverages.Energy, 1e-9)
}

func TestEnergyZeroDuration(t *testing.T) {
	samples := []series.Sample{
		{Time: t0, Temperatures: []*float64{nil}, Power: series.Power{Energy: series.Float(50)}},
	}

	res, err := Aggregate(samples, oneColumn, t0, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, res.Energy.DailyWh)
	assert.Equal(t, 0.0, *res.Energy.DailyWh)
	assert.Equal(t, 0.0, *res.Energy.DeltaWh)
}

func TestEmptyWindow(t *testing.T) {
	res, err := Aggregate(powerSeries(3), oneColumn, t0.Add(time.Hour), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Samples)
	assert.True(t, res.Channels[0].NoData)
	assert.Nil(t, res.Energy.DeltaWh)
	assert.Nil(t, res.PowerAverages.Power)
}
