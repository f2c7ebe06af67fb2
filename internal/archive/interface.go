package archive

import (
	"context"
	"time"

	"codeberg.org/mutker/fridgebench/internal/station"
)

// Archive keeps every sample of every run in a queryable store that survives restarts.
type Archive interface {
	station.Sink
	Runs(ctx context.Context, stationID int) ([]Run, error)
	Samples(ctx context.Context, runID string) ([]Row, error)
	Close() error
}

// DropCounter counts samples discarded because the buffer filled while writes failed.
type DropCounter interface {
	ArchiveDropped(n int)
}

type options struct {
	drops DropCounter
}

type Option func(*options)

// WithDropCounter reports dropped samples to d.
func WithDropCounter(d DropCounter) Option {
	return func(o *options) {
		if d != nil {
			o.drops = d
		}
	}
}

type nopDropCounter struct{}

func (nopDropCounter) ArchiveDropped(int) {}

// Run summarises one collection session.
type Run struct {
	RunID     string    `json:"run_id"`
	StationID int       `json:"station_id"`
	Model     string    `json:"model"`
	Channels  []string  `json:"channels"`
	Samples   int       `json:"samples"`
	First     time.Time `json:"first"`
	Last      time.Time `json:"last"`
}

// Row is one archived sample.
type Row struct {
	Time         time.Time  `json:"time"`
	Temperatures []*float64 `json:"temperatures"`
	Voltage      *float64   `json:"voltage"`
	Current      *float64   `json:"current"`
	Power        *float64   `json:"power"`
	Energy       *float64   `json:"energy"`
}
