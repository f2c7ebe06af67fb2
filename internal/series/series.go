// Package series holds the sample model shared by the collectors, the data file store and the
// report aggregator.
package series

import (
	"sync"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
)

// ErrNotIncreasing is returned by Append when a sample is not strictly after the last one.
var ErrNotIncreasing = errors.RegisterKind("series_timestamp_not_increasing", errors.ErrValidation)

// Power is the power meter tuple of a sample. A nil field is a reading the meter did not deliver.
type Power struct {
	Voltage *float64 `json:"voltage"`
	Current *float64 `json:"current"`
	Power   *float64 `json:"power"`
	Energy  *float64 `json:"energy"`
}

// Sample is one polling iteration of a station.
type Sample struct {
	Time time.Time `json:"time"`
	// Temperatures has one slot per configured channel, in configuration order.
	Temperatures []*float64 `json:"temperatures"`
	Power        Power      `json:"power"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Clone returns a deep copy of s.
func (s Sample) Clone() Sample {
	out := Sample{
		Time:         s.Time,
		Temperatures: make([]*float64, len(s.Temperatures)),
		Power: Power{
			Voltage: clonePtr(s.Power.Voltage),
			Current: clonePtr(s.Power.Current),
			Power:   clonePtr(s.Power.Power),
			Energy:  clonePtr(s.Power.Energy),
		},
	}
	for i, v := range s.Temperatures {
		out.Temperatures[i] = clonePtr(v)
	}
	return out
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v)
}

// TimeSeries is an append-only, strictly time-ordered sequence of samples for one station.
// Only the owning collector appends; readers get copies.
type TimeSeries struct {
	mu      sync.RWMutex
	samples []Sample
}

// New returns an empty series.
func New() *TimeSeries {
	return &TimeSeries{}
}

// FromSamples builds a series from already ordered samples, e.g. read back from a data file.
func FromSamples(samples []Sample) (*TimeSeries, error) {
	ts := New()
	for _, s := range samples {
		if err := ts.Append(s); err != nil {
			return nil, err
		}
	}
	return ts, nil
}

// Append adds s at the end of the series.
func (ts *TimeSeries) Append(s Sample) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if n := len(ts.samples); n > 0 && !s.Time.After(ts.samples[n-1].Time) {
		return errors.New().WithData(ErrNotIncreasing, struct {
			Last time.Time
			Next time.Time
		}{ts.samples[n-1].Time, s.Time})
	}

	ts.samples = append(ts.samples, s.Clone())
	return nil
}

// Len returns the number of samples.
func (ts *TimeSeries) Len() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.samples)
}

// Last returns the most recent sample.
func (ts *TimeSeries) Last() (Sample, bool) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	if len(ts.samples) == 0 {
		return Sample{}, false
	}
	return ts.samples[len(ts.samples)-1].Clone(), true
}

// Samples returns a copy of every sample.
func (ts *TimeSeries) Samples() []Sample {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	out := make([]Sample, len(ts.samples))
	for i, s := range ts.samples {
		out[i] = s.Clone()
	}
	return out
}

// Window returns copies of the samples with start <= Time <= end.
func (ts *TimeSeries) Window(start, end time.Time) []Sample {
	ts.mu.RLock()
	defer ts.mu.RUnlock()

	var out []Sample
	for _, s := range ts.samples {
		if s.Time.Before(start) {
			continue
		}
		if s.Time.After(end) {
			break
		}
		out = append(out, s.Clone())
	}
	return out
}
