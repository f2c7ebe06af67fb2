package station

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/recorder"
	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/store"
	"codeberg.org/mutker/fridgebench/internal/telemetry"
)

type fakeCache struct {
	snap         *telemetry.Snapshot
	disconnected bool
}

func newFakeCache(values map[string]float64) *fakeCache {
	readings := recorder.Readings{}
	for ch, v := range values {
		readings[ch] = recorder.ChannelReading{Channel: ch, Value: v, Valid: true, Unit: "C", Status: "N"}
	}
	return &fakeCache{snap: &telemetry.Snapshot{Readings: readings, UpdatedAt: time.Now()}}
}

func (f *fakeCache) Snapshot() *telemetry.Snapshot { return f.snap }
func (f *fakeCache) Connected() bool               { return !f.disconnected }

// fakeMeter returns a rising energy counter. fail makes every query fail with failCode
// (ErrConnection when unset); block makes Query hang until release is closed, ignoring ctx.
type fakeMeter struct {
	mu       sync.Mutex
	queries  int
	fail     bool
	failCode errors.ErrorCode
	power    float64
	block    chan struct{}
	closed   atomic.Bool
}

func (m *fakeMeter) Query(ctx context.Context) (series.Power, error) {
	if m.block != nil {
		<-m.block
		return series.Power{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries++
	if m.fail {
		code := m.failCode
		if code == "" {
			code = errors.ErrConnection
		}
		return series.Power{}, errors.New().New(code)
	}
	return series.Power{
		Voltage: series.Float(110),
		Current: series.Float(0.5),
		Power:   series.Float(m.power),
		Energy:  series.Float(float64(m.queries)),
	}, nil
}

func (m *fakeMeter) Close() error {
	m.closed.Store(true)
	return nil
}

type memStore struct {
	mu       sync.Mutex
	path     string
	meta     store.Metadata
	rows     []series.Sample
	failFrom int
	closed   bool
}

func (s *memStore) Append(sample series.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFrom > 0 && len(s.rows)+1 >= s.failFrom {
		return errors.New().New(store.ErrWrite)
	}
	s.rows = append(s.rows, sample)
	return nil
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memStore) Path() string { return s.path }

func (s *memStore) Rows() []series.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]series.Sample(nil), s.rows...)
}

func (s *memStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type memOpener struct {
	mu       sync.Mutex
	opened   []*memStore
	err      error
	failFrom int
}

func (o *memOpener) Open(path string, meta store.Metadata) (DataStore, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := &memStore{path: path, meta: meta, failFrom: o.failFrom}
	o.opened = append(o.opened, s)
	return s, nil
}

func (o *memOpener) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

func (o *memOpener) Last() *memStore {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opened[len(o.opened)-1]
}
