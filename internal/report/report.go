// Package report summarises a window of station samples: channel statistics, compressor
// on/off cycling and energy consumption.
package report

import (
	"math"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
)

const (
	// OnThreshold is the power in watts at or above which the compressor counts as running.
	OnThreshold   = 3.0
	secondsPerDay = 24 * 60 * 60
)

// Column names one temperature slot.
type Column struct {
	Channel string `json:"channel"`
	Label   string `json:"label"`
}

// ChannelStat is nil-valued with NoData set when a channel has no readings in the window.
type ChannelStat struct {
	Column
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"std_dev"`
	Count  int      `json:"count"`
	NoData bool     `json:"no_data"`
}

type PowerAverages struct {
	Voltage *float64 `json:"voltage"`
	Current *float64 `json:"current"`
	Power   *float64 `json:"power"`
	Energy  *float64 `json:"energy"`
}

type Cycling struct {
	// Cycles is the number of state changes divided by two.
	Cycles int `json:"cycles"`
	// OnSegments and OffSegments count the runs used for the averages,
	// i.e. without the first and last run of the window.
	OnSegments     int     `json:"on_segments"`
	OffSegments    int     `json:"off_segments"`
	AvgOnMinutes   float64 `json:"avg_on_minutes"`
	AvgOffMinutes  float64 `json:"avg_off_minutes"`
	OnPercentage   float64 `json:"on_percentage"`
	TotalSegments  int     `json:"total_segments"`
	PowerAvailable bool    `json:"power_available"`
}

type Energy struct {
	// DeltaWh is the cumulative energy difference between the first and last reading in the window.
	DeltaWh *float64 `json:"delta_wh"`
	// Daily is DeltaWh extrapolated linearly to 24 hours. It is 0 for a zero-length span.
	DailyWh *float64 `json:"daily_wh"`
	Seconds float64  `json:"seconds"`
}

type Result struct {
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	Samples        int           `json:"samples"`
	ElapsedMinutes int           `json:"elapsed_minutes"`
	Channels       []ChannelStat `json:"channels"`
	PowerAverages  PowerAverages `json:"power_averages"`
	Cycling        Cycling       `json:"cycling"`
	Energy         Energy        `json:"energy"`
}

// Aggregate summarises the samples with start <= Time <= end. columns describes the
// temperature slots of every sample in order.
func Aggregate(samples []series.Sample, columns []Column, start, end time.Time) (Result, error) {
	errFactory := errors.New()

	if !start.Before(end) {
		return Result{}, errFactory.New(ErrInvalidWindow).WithData(struct {
			Start time.Time
			End   time.Time
		}{start, end})
	}

	window := make([]series.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Time.Before(start) || s.Time.After(end) {
			continue
		}
		if len(s.Temperatures) != len(columns) {
			return Result{}, errFactory.New(ErrColumnCount).WithData(s.Time)
		}
		window = append(window, s)
	}

	return Result{
		Start:          start,
		End:            end,
		Samples:        len(window),
		ElapsedMinutes: int(end.Sub(start) / time.Minute),
		Channels:       channelStats(window, columns),
		PowerAverages:  powerAverages(window),
		Cycling:        cycling(window),
		Energy:         energy(window),
	}, nil
}

func channelStats(window []series.Sample, columns []Column) []ChannelStat {
	out := make([]ChannelStat, len(columns))
	for i, col := range columns {
		values := make([]float64, 0, len(window))
		for _, s := range window {
			if v := s.Temperatures[i]; v != nil {
				values = append(values, *v)
			}
		}

		stat := ChannelStat{Column: col, Count: len(values)}
		if len(values) == 0 {
			stat.NoData = true
		} else {
			mean, std := meanStd(values)
			stat.Mean = &mean
			stat.StdDev = &std
		}
		out[i] = stat
	}
	return out
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

func powerAverages(window []series.Sample) PowerAverages {
	avg := func(get func(series.Power) *float64) *float64 {
		var sum float64
		n := 0
		for _, s := range window {
			if v := get(s.Power); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			return nil
		}
		return series.Float(sum / float64(n))
	}

	return PowerAverages{
		Voltage: avg(func(p series.Power) *float64 { return p.Voltage }),
		Current: avg(func(p series.Power) *float64 { return p.Current }),
		Power:   avg(func(p series.Power) *float64 { return p.Power }),
		Energy:  avg(func(p series.Power) *float64 { return p.Energy }),
	}
}

type segment struct {
	on          bool
	first, last time.Time
}

// IsOn reports whether a sample counts as compressor-on. A missing power reading counts as off.
func IsOn(s series.Sample) bool {
	return s.Power.Power != nil && *s.Power.Power >= OnThreshold
}

func segments(window []series.Sample) []segment {
	var out []segment
	for _, s := range window {
		on := IsOn(s)
		if n := len(out); n > 0 && out[n-1].on == on {
			out[n-1].last = s.Time
			continue
		}
		out = append(out, segment{on: on, first: s.Time, last: s.Time})
	}
	return out
}

func cycling(window []series.Sample) Cycling {
	var c Cycling
	for _, s := range window {
		if s.Power.Power != nil {
			c.PowerAvailable = true
			break
		}
	}

	segs := segments(window)
	c.TotalSegments = len(segs)
	if len(segs) > 0 {
		c.Cycles = (len(segs) - 1) / 2
	}

	// The first and last run are cut by the window edges.
	if len(segs) <= 2 {
		return c
	}

	var onSum, offSum time.Duration
	for _, seg := range segs[1 : len(segs)-1] {
		d := seg.last.Sub(seg.first)
		if seg.on {
			onSum += d
			c.OnSegments++
		} else {
			offSum += d
			c.OffSegments++
		}
	}

	if c.OnSegments > 0 {
		c.AvgOnMinutes = onSum.Minutes() / float64(c.OnSegments)
	}
	if c.OffSegments > 0 {
		c.AvgOffMinutes = offSum.Minutes() / float64(c.OffSegments)
	}
	if total := c.AvgOnMinutes + c.AvgOffMinutes; total > 0 {
		c.OnPercentage = c.AvgOnMinutes / total * 100
	}

	return c
}

func energy(window []series.Sample) Energy {
	var first, last *series.Sample
	for i := range window {
		if window[i].Power.Energy == nil {
			continue
		}
		if first == nil {
			first = &window[i]
		}
		last = &window[i]
	}

	if first == nil {
		return Energy{}
	}

	delta := *last.Power.Energy - *first.Power.Energy
	seconds := last.Time.Sub(first.Time).Seconds()

	daily := 0.0
	if seconds > 0 {
		daily = delta * secondsPerDay / seconds
	}

	return Energy{
		DeltaWh: &delta,
		DailyWh: &daily,
		Seconds: seconds,
	}
}
