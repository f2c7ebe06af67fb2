package station

import (
	"context"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/fridgebench/internal/efficiency"
	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/report"
	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/store"
	"golang.org/x/sync/errgroup"
)

// Report is a report window plus, when the enclosure is rated, its efficiency grade.
type Report struct {
	report.Result
	StationID  int                `json:"station_id"`
	Source     string             `json:"source"`
	Efficiency *efficiency.Result `json:"efficiency,omitempty"`
}

// SourceMemory marks a report computed from the in-memory series.
const SourceMemory = "memory"

type ManagerOption func(*Manager)

// WithIntervals restricts Configure to the given sample intervals.
func WithIntervals(allowed []time.Duration) ManagerOption {
	return func(m *Manager) {
		m.intervals = append([]time.Duration(nil), allowed...)
	}
}

// WithPercentBasis selects how efficiency percentages are computed.
func WithPercentBasis(b efficiency.PercentBasis) ManagerOption {
	return func(m *Manager) {
		m.basis = b
	}
}

// WithLocation sets the zone data file timestamps are read back in.
func WithLocation(loc *time.Location) ManagerOption {
	return func(m *Manager) {
		m.loc = loc
	}
}

// Manager is the boundary of the acquisition core: one collector per station id.
type Manager struct {
	deps      Deps
	intervals []time.Duration
	basis     efficiency.PercentBasis
	loc       *time.Location

	mu         sync.RWMutex
	configs    map[int]Config
	collectors map[int]*Collector
}

func NewManager(deps Deps, opts ...ManagerOption) *Manager {
	m := &Manager{
		deps:       deps.withDefaults(),
		intervals:  DefaultIntervals,
		loc:        time.Local,
		configs:    make(map[int]Config),
		collectors: make(map[int]*Collector),
	}
	for _, opt := range opts {
		opt(m)
	}
	for id := 1; id <= MaxStations; id++ {
		m.collectors[id] = NewCollector(id, m.deps)
	}
	return m
}

func (m *Manager) collector(id int) (*Collector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.collectors[id]
	if !ok {
		return nil, errors.New().New(ErrInvalidStation).WithData(id)
	}
	return c, nil
}

// Configure stores the configuration of a station. A running station keeps its current
// configuration until the next Start.
func (m *Manager) Configure(id int, cfg Config) error {
	if _, err := m.collector(id); err != nil {
		return err
	}

	cfg = cfg.Clone()
	cfg.ID = id
	if err := cfg.Check(); err != nil {
		return err
	}
	if err := cfg.CheckInterval(m.intervals); err != nil {
		return err
	}

	m.mu.Lock()
	m.configs[id] = cfg
	m.mu.Unlock()

	m.deps.Log.Debug().Int("station", id).Int("channels", len(cfg.Channels)).Msg("Station configured")
	return nil
}

// Config returns the stored configuration of a station.
func (m *Manager) Config(id int) (Config, error) {
	if _, err := m.collector(id); err != nil {
		return Config{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[id]
	if !ok {
		return Config{}, errors.New().New(ErrNotConfigured).WithData(id)
	}
	return cfg.Clone(), nil
}

func (m *Manager) Start(id int) error {
	c, err := m.collector(id)
	if err != nil {
		return err
	}
	cfg, err := m.Config(id)
	if err != nil {
		return err
	}
	return c.Start(cfg)
}

func (m *Manager) Stop(id int) error {
	c, err := m.collector(id)
	if err != nil {
		return err
	}
	return c.Stop()
}

// Snapshot returns the latest sample and connectivity of a station.
func (m *Manager) Snapshot(id int) (Status, error) {
	c, err := m.collector(id)
	if err != nil {
		return Status{}, err
	}
	return c.Status(), nil
}

// Statuses returns the status of every station in id order.
func (m *Manager) Statuses() []Status {
	out := make([]Status, 0, MaxStations)
	for id := 1; id <= MaxStations; id++ {
		if c, err := m.collector(id); err == nil {
			out = append(out, c.Status())
		}
	}
	return out
}

// StopAll stops every station concurrently and returns the first error.
func (m *Manager) StopAll(ctx context.Context) error {
	var g errgroup.Group
	for id := 1; id <= MaxStations; id++ {
		c, err := m.collector(id)
		if err != nil {
			continue
		}
		g.Go(c.Stop)
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.New().Wrap(errors.ErrShutdownFailed, ctx.Err())
	}
}

// Report aggregates the window [start, end] of a station. It uses the in-memory series of the
// current or last run and falls back to the station's latest data file.
func (m *Manager) Report(id int, start, end time.Time) (Report, error) {
	errFactory := errors.New()

	c, err := m.collector(id)
	if err != nil {
		return Report{}, err
	}
	if !start.Before(end) {
		return Report{}, errFactory.New(report.ErrInvalidWindow).WithData(id)
	}

	cfg, cfgErr := m.Config(id)

	var (
		samples []series.Sample
		columns []report.Column
		source  string
	)

	if ts := c.Series(); ts != nil && ts.Len() > 0 {
		samples = ts.Window(start, end)
		columns = c.columns()
		source = SourceMemory
	} else {
		if cfgErr != nil {
			return Report{}, cfgErr
		}
		if cfg.StorageDir == "" {
			return Report{}, errFactory.New(ErrNoStorage).WithData(id)
		}
		path, err := store.Latest(cfg.StorageDir, id)
		if err != nil {
			return Report{}, errFactory.Wrap(ErrNoData, err).WithData(id)
		}
		meta, fileSamples, err := store.ReadSamples(path, m.loc)
		if err != nil {
			return Report{}, err
		}
		samples = fileSamples
		columns = columnsFromLabels(meta.Labels, cfg)
		source = path
	}

	res, err := report.Aggregate(samples, columns, start, end)
	if err != nil {
		return Report{}, err
	}

	out := Report{Result: res, StationID: id, Source: source}

	// A single energy reading spans no time and extrapolates to zero daily consumption.
	if cfgErr == nil && cfg.Enclosure.Rated() && res.Energy.DailyWh != nil && res.Energy.Seconds > 0 {
		in := efficiency.Input{
			FreezerVolume: cfg.Enclosure.FreezerVolume,
			FridgeVolume:  cfg.Enclosure.FridgeVolume,
			DailyKWh:      *res.Energy.DailyWh / 1000,
			FreezerTemp:   cfg.Enclosure.FreezerTemp,
			FridgeTemp:    cfg.Enclosure.FridgeTemp,
			Fan:           cfg.Enclosure.Fan,
			Basis:         m.basis,
		}
		if err := in.Validate(); err != nil {
			m.deps.Log.Warn().Err(err).Int("station", id).Msg("Efficiency skipped")
		} else {
			eff := efficiency.Calculate(in)
			out.Efficiency = &eff
		}
	}

	return out, nil
}

// columns returns the columns of the current or last run.
func (c *Collector) columns() []report.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.cfg.Columns()
}

// columnsFromLabels recovers channel ids from data file labels, using the configured aliases
// when a label is not of the CH<id> form.
func columnsFromLabels(labels []string, cfg Config) []report.Column {
	byAlias := make(map[string]string, len(cfg.Aliases))
	for ch, alias := range cfg.Aliases {
		byAlias[strings.TrimSpace(alias)] = ch
	}

	out := make([]report.Column, len(labels))
	for i, label := range labels {
		col := report.Column{Label: label}
		if ch := strings.TrimPrefix(label, "CH"); ch != label && ValidChannel(ch) {
			col.Channel = ch
		} else if ch, ok := byAlias[label]; ok {
			col.Channel = ch
		}
		out[i] = col
	}
	return out
}
