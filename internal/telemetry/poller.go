package telemetry

import (
	"context"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/observability"
)

// Poller is the only writer of a Cache.
type Poller struct {
	source  Source
	cache   *Cache
	cfg     Config
	log     logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewPoller(cfg Config, source Source, cache *Cache, log logger.Logger, metrics *observability.Metrics) (*Poller, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || cache == nil {
		return nil, errFactory.New(ErrMissingSource)
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Poller{
		source:  source,
		cache:   cache,
		cfg:     cfg,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", p.cfg.Interval).Msg("Recorder poller started")

	for {
		_ = p.PollOnce(ctx)

		select {
		case <-ctx.Done():
			p.log.Info().Msg("Recorder poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// PollOnce performs a single poll. On failure the published snapshot is kept and
// the connectivity flag is cleared.
func (p *Poller) PollOnce(ctx context.Context) error {
	readings, err := p.source.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.cache.markDisconnected()
		p.metrics.RecorderPoll(0, err)

		wrapped := errors.New().Wrap(ErrPollFailed, err)
		p.log.ErrorWithCode(wrapped).Msg("Recorder poll failed")
		return wrapped
	}

	p.cache.publish(readings, p.now())
	p.metrics.RecorderPoll(len(readings), nil)
	p.log.Debug().Int("channels", len(readings)).Msg("Recorder snapshot published")
	return nil
}
