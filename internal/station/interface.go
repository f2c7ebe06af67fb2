package station

import (
	"context"
	"time"

	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/store"
)

// PowerMeter is the per-station meter connection.
type PowerMeter interface {
	Query(ctx context.Context) (series.Power, error)
	Close() error
}

// MeterFactory builds the meter client of a run.
type MeterFactory func(cfg Config) PowerMeter

// DataStore is the persistent store of a run. Append failures end the run.
type DataStore interface {
	Append(s series.Sample) error
	Close() error
	Path() string
}

// StoreOpener opens the data store of a run.
type StoreOpener func(path string, meta store.Metadata) (DataStore, error)

// Record is one sample as handed to secondary sinks.
type Record struct {
	StationID int
	RunID     string
	Model     string
	Channels  []string
	Labels    []string
	Sample    series.Sample
}

// Sink receives every recorded sample. Sink errors are logged and never end a run.
type Sink interface {
	Record(ctx context.Context, rec Record) error
}

// Status is the boundary view of a station.
type Status struct {
	ID                int            `json:"id"`
	State             State          `json:"state"`
	RunID             string         `json:"run_id,omitempty"`
	Started           time.Time      `json:"started"`
	Samples           int            `json:"samples"`
	Latest            *series.Sample `json:"latest,omitempty"`
	Labels            []string       `json:"labels,omitempty"`
	MeterConnected    bool           `json:"meter_connected"`
	RecorderConnected bool           `json:"recorder_connected"`
	StorePath         string         `json:"store_path,omitempty"`
	LastError         string         `json:"last_error,omitempty"`
}

func openCSV(path string, meta store.Metadata) (DataStore, error) {
	s, err := store.Open(path, meta)
	if err != nil {
		return nil, err
	}
	return s, nil
}
