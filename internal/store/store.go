// Package store persists station samples to CSV data files.
//
// A data file starts with two metadata rows and a header row:
//
//	DateTime: 20240101_120000
//	Model: RF-450
//	Date,Time,CH0001,Freezer,...,U(V),I(A),P(W),WP(Wh)
//
// followed by one row per sample.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
)

const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05"
	StampLayout    = "20060102_150405"
	dateTimePrefix = "DateTime: "
	modelPrefix    = "Model: "
	defaultDirPerm = 0o755
	defaultPerm    = 0o644
)

// PowerColumns are the fixed trailing header columns.
var PowerColumns = []string{"U(V)", "I(A)", "P(W)", "WP(Wh)"}

// Metadata describes the header block of a data file.
type Metadata struct {
	Started time.Time
	Model   string
	// Labels has one header label per temperature slot, in order.
	Labels []string
}

// FileName returns the data file path of a collection run started at started.
func FileName(dir string, stationID int, started time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_station%d.csv", started.Format(StampLayout), stationID))
}

// Store appends sample rows to one data file. It is owned by a single collector.
type Store struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *csv.Writer
	width  int
	closed bool
}

// Open opens path for appending, creating it and its directory when needed.
// The metadata and header rows are written only when the file has no header yet.
func Open(path string, meta Metadata) (*Store, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrCreate, err).WithData(path)
	}

	hasHeader, err := headerPresent(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, defaultPerm)
	if err != nil {
		return nil, errFactory.Wrap(ErrCreate, err).WithData(path)
	}

	s := &Store{
		path:  path,
		file:  f,
		w:     csv.NewWriter(f),
		width: len(meta.Labels),
	}

	if !hasHeader {
		if err := s.writeHeader(meta); err != nil {
			f.Close()
			return nil, err
		}
	}

	return s, nil
}

func (s *Store) writeHeader(meta Metadata) error {
	model := meta.Model
	if model == "" {
		model = "NA"
	}

	header := make([]string, 0, 2+len(meta.Labels)+len(PowerColumns))
	header = append(header, "Date", "Time")
	header = append(header, meta.Labels...)
	header = append(header, PowerColumns...)

	rows := [][]string{
		{dateTimePrefix + meta.Started.Format(StampLayout)},
		{modelPrefix + model},
		header,
	}
	for _, row := range rows {
		if err := s.w.Write(row); err != nil {
			return errors.New().Wrap(ErrWrite, err).WithData(s.path)
		}
	}
	return s.flush()
}

// Path returns the data file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes one sample row and flushes it to disk.
func (s *Store) Append(sample series.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errFactory := errors.New()

	if s.closed {
		return errFactory.New(ErrClosed).WithData(s.path)
	}
	if len(sample.Temperatures) != s.width {
		return errFactory.New(ErrRowWidth).WithData(fmt.Sprintf("%d values for %d columns", len(sample.Temperatures), s.width))
	}

	row := make([]string, 0, 2+s.width+len(PowerColumns))
	row = append(row, sample.Time.Format(DateLayout), sample.Time.Format(TimeLayout))
	for _, v := range sample.Temperatures {
		row = append(row, formatValue(v))
	}
	row = append(row,
		formatValue(sample.Power.Voltage),
		formatValue(sample.Power.Current),
		formatValue(sample.Power.Power),
		formatValue(sample.Power.Energy),
	)

	if err := s.w.Write(row); err != nil {
		return errFactory.Wrap(ErrWrite, err).WithData(s.path)
	}
	return s.flush()
}

func (s *Store) flush() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return errors.New().Wrap(ErrWrite, err).WithData(s.path)
	}
	return nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	flushErr := s.flush()
	if err := s.file.Close(); err != nil {
		return errors.New().Wrap(ErrWrite, err).WithData(s.path)
	}
	return flushErr
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// headerPresent reports whether path already holds a header row.
func headerPresent(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.New().Wrap(ErrCreate, err).WithData(path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	for {
		row, err := r.Read()
		if err != nil {
			// EOF or a torn trailing row: no header seen so far.
			return false, nil
		}
		if len(row) > 0 && row[0] == "Date" {
			return true, nil
		}
	}
}
