package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/fridgebench/internal/recorder"
)

// Source delivers one full set of channel readings per call.
type Source interface {
	Poll(ctx context.Context) (recorder.Readings, error)
}

// Reader is the read side of the cache handed to collectors.
type Reader interface {
	Snapshot() *Snapshot
	Connected() bool
}

// Snapshot is an immutable set of readings. It is never modified after publication.
type Snapshot struct {
	Readings  recorder.Readings
	UpdatedAt time.Time
}

// Value returns the reading for channel, or nil when it is missing or invalid.
func (s *Snapshot) Value(channel string) *float64 {
	if s == nil {
		return nil
	}
	r, ok := s.Readings[channel]
	if !ok {
		return nil
	}
	return r.Float()
}
