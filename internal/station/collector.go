package station

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/observability"
	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/store"
	"codeberg.org/mutker/fridgebench/internal/telemetry"
	"github.com/google/uuid"
)

const DefaultStopTimeout = 5 * time.Second

// Deps are the collaborators shared by every collector.
type Deps struct {
	Cache       telemetry.Reader
	Meters      MeterFactory
	OpenStore   StoreOpener
	Sinks       []Sink
	Metrics     *observability.Metrics
	Log         logger.Logger
	StopTimeout time.Duration
	// MaxStaleness bounds the age of a recorder snapshot used for a sample. Zero only
	// requires the recorder to be connected.
	MaxStaleness time.Duration
	Now          func() time.Time
	// OnFatal is called from the collection goroutine when a run ends on its own.
	OnFatal func(stationID int, err error)
}

func (d Deps) withDefaults() Deps {
	if d.OpenStore == nil {
		d.OpenStore = openCSV
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.StopTimeout <= 0 {
		d.StopTimeout = DefaultStopTimeout
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// run is the state of one collection session, owned by its goroutine.
type run struct {
	cfg    Config
	id     string
	series *series.TimeSeries
	store  DataStore
	meter  PowerMeter
	log    logger.Logger
}

// Collector drives the polling loop of one station. Start and Stop are safe for concurrent
// use; at most one loop runs at any time.
type Collector struct {
	id   int
	deps Deps
	log  logger.Logger

	mu      sync.Mutex
	state   State
	current *run
	series  *series.TimeSeries
	started time.Time
	cancel  context.CancelFunc
	done    chan struct{}
	err     error

	meterOK atomic.Bool
}

func NewCollector(id int, deps Deps) *Collector {
	deps = deps.withDefaults()
	return &Collector{
		id:   id,
		deps: deps,
		log:  deps.Log.With("station", strconv.Itoa(id)),
	}
}

func (c *Collector) ID() int {
	return c.id
}

func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the last run on its own, if any.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Series returns the series of the current or most recent run, or nil before the first run.
func (c *Collector) Series() *series.TimeSeries {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.series
}

// Start opens the data store and launches the polling loop. On any error the station stays Idle.
func (c *Collector) Start(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	errFactory := errors.New()

	if c.state != Idle {
		return errFactory.New(errors.ErrAlreadyRunning).WithData(c.id)
	}
	cfg = cfg.Clone()
	cfg.ID = c.id
	if err := cfg.Validate(); err != nil {
		return err
	}

	started := c.deps.Now()
	path := store.FileName(cfg.StorageDir, c.id, started)
	ds, err := c.deps.OpenStore(path, store.Metadata{
		Started: started,
		Model:   cfg.Model,
		Labels:  cfg.Labels(),
	})
	if err != nil {
		return errFactory.Wrap(ErrStoreOpen, err).WithData(path)
	}

	var meter PowerMeter
	if c.deps.Meters != nil {
		meter = c.deps.Meters(cfg)
	}

	r := &run{
		cfg:    cfg,
		id:     uuid.NewString(),
		series: series.New(),
		store:  ds,
		meter:  meter,
	}
	r.log = c.log.With("run", r.id)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.current = r
	c.series = r.series
	c.started = started
	c.cancel = cancel
	c.done = done
	c.err = nil
	c.meterOK.Store(false)
	c.setState(Running)

	r.log.Info().
		Str("store", ds.Path()).
		Int("channels", len(cfg.Channels)).
		Dur("interval", cfg.Interval).
		Msg("Collection started")

	go c.loop(ctx, r, done)
	return nil
}

// Stop cancels the running loop and waits for it to exit. Stopping an idle station is a no-op.
// When the loop does not exit within the stop timeout an ErrStopTimeout is returned and the
// station stays Stopping until it does.
func (c *Collector) Stop() error {
	errFactory := errors.New()

	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return nil
	case Stopping:
		c.mu.Unlock()
		return errFactory.New(ErrStopInProgress).WithData(c.id)
	}
	c.setState(Stopping)
	c.cancel()
	done := c.done
	c.mu.Unlock()

	timer := time.NewTimer(c.deps.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		c.log.Info().Msg("Collection stopped")
		return nil
	case <-timer.C:
		err := errFactory.New(errors.ErrStopTimeout).WithData(c.id)
		c.log.ErrorWithCode(err).Dur("timeout", c.deps.StopTimeout).Msg("Collection loop did not exit")
		return err
	}
}

// Done is closed when the current run's loop has exited.
func (c *Collector) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.done
}

// Status returns the boundary view of the station.
func (c *Collector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		ID:             c.id,
		State:          c.state,
		MeterConnected: c.state == Running && c.meterOK.Load(),
	}
	if c.deps.Cache != nil {
		st.RecorderConnected = c.deps.Cache.Connected()
	}
	if c.err != nil {
		st.LastError = c.err.Error()
	}
	if c.current != nil {
		st.RunID = c.current.id
		st.Started = c.started
		st.StorePath = c.current.store.Path()
		st.Labels = c.current.cfg.Labels()
	}
	if c.series != nil {
		st.Samples = c.series.Len()
		if last, ok := c.series.Last(); ok {
			st.Latest = &last
		}
	}
	return st
}

func (c *Collector) loop(ctx context.Context, r *run, done chan struct{}) {
	var fatal error

	defer func() {
		if err := r.store.Close(); err != nil {
			r.log.Warn().Err(err).Msg("Failed to close data store")
		}
		if r.meter != nil {
			_ = r.meter.Close()
		}

		c.mu.Lock()
		c.err = fatal
		c.setState(Idle)
		c.cancel()
		close(done)
		c.mu.Unlock()

		if fatal != nil && c.deps.OnFatal != nil {
			c.deps.OnFatal(c.id, fatal)
		}
	}()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx, r); err != nil {
			fatal = err
			c.mu.Lock()
			c.setState(Stopping)
			c.mu.Unlock()

			if e, ok := err.(errors.Error); ok {
				r.log.ErrorWithCode(e).Msg("Collection aborted")
			}
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// collect takes one sample. Only a store failure is returned; everything else degrades the sample.
func (c *Collector) collect(ctx context.Context, r *run) error {
	snap := c.liveSnapshot()

	temps := make([]*float64, len(r.cfg.Channels))
	for i, ch := range r.cfg.Channels {
		temps[i] = snap.Value(ch)
	}

	var power series.Power
	if r.meter != nil {
		p, err := r.meter.Query(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.deps.Metrics.MeterQuery(c.id, err)
		if err != nil {
			c.meterOK.Store(false)
			r.log.Warn().Err(err).Str("kind", errors.Kind(err).String()).Msg("Power meter query failed")
		} else {
			c.meterOK.Store(true)
			power = p
		}
	}

	sample := series.Sample{
		Time:         c.deps.Now(),
		Temperatures: temps,
		Power:        power,
	}

	if err := r.series.Append(sample); err != nil {
		r.log.Warn().Err(err).Msg("Sample skipped")
		return nil
	}

	if err := r.store.Append(sample); err != nil {
		c.deps.Metrics.StoreError(c.id)
		return errors.New().Wrap(ErrStoreAppend, err).WithData(r.store.Path())
	}
	c.deps.Metrics.SampleRecorded(c.id)

	rec := Record{
		StationID: c.id,
		RunID:     r.id,
		Model:     r.cfg.Model,
		Channels:  r.cfg.Channels,
		Labels:    r.cfg.Labels(),
		Sample:    sample,
	}
	for _, sink := range c.deps.Sinks {
		if err := sink.Record(ctx, rec); err != nil {
			c.deps.Metrics.StoreError(c.id)
			r.log.Warn().Err(err).Msg("Sample sink failed")
		}
	}

	return nil
}

// liveSnapshot returns the recorder snapshot, or nil when the recorder is disconnected or the
// snapshot is older than MaxStaleness. A nil snapshot yields null temperatures.
func (c *Collector) liveSnapshot() *telemetry.Snapshot {
	if c.deps.Cache == nil || !c.deps.Cache.Connected() {
		return nil
	}
	snap := c.deps.Cache.Snapshot()
	if snap == nil {
		return nil
	}
	if c.deps.MaxStaleness > 0 && c.deps.Now().Sub(snap.UpdatedAt) > c.deps.MaxStaleness {
		return nil
	}
	return snap
}

// setState must be called with c.mu held.
func (c *Collector) setState(s State) {
	c.state = s
	c.deps.Metrics.SetStationState(c.id, int(s))
}
