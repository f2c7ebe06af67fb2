// Package archive keeps every recorded sample in a sqlite database, batched per transaction.
package archive

import (
	"context"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/station"
)

type service struct {
	repo *repository
	cfg  Config
}

// No-op implementation
type noopArchive struct{}

// New returns the sqlite archive, or a no-op archive when cfg is disabled.
func New(cfg Config, log logger.Logger, opts ...Option) (Archive, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}
	if log == nil {
		log = logger.Nop()
	}

	if !cfg.Enabled {
		log.Debug().Msg("Archive disabled, using no-op archive")
		return &noopArchive{}, nil
	}

	o := options{drops: nopDropCounter{}}
	for _, opt := range opts {
		opt(&o)
	}

	repo, err := newRepository(cfg, log, o.drops)
	if err != nil {
		return nil, err
	}

	return &service{
		repo: repo,
		cfg:  cfg,
	}, nil
}

func (s *service) Record(ctx context.Context, rec station.Record) error {
	errFactory := errors.New()

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
	}

	if err := s.repo.record(rec); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	return nil
}

// Runs lists the archived runs of a station, oldest first. Buffered samples are flushed first.
func (s *service) Runs(ctx context.Context, stationID int) ([]Run, error) {
	if err := s.flush(); err != nil {
		return nil, err
	}
	return s.repo.runs(ctx, stationID)
}

func (s *service) Samples(ctx context.Context, runID string) ([]Row, error) {
	if err := s.flush(); err != nil {
		return nil, err
	}
	return s.repo.samples(ctx, runID)
}

func (s *service) flush() error {
	s.repo.mu.Lock()
	defer s.repo.mu.Unlock()
	if s.repo.closed {
		return errors.New().New(ErrClosed)
	}
	return s.repo.flush()
}

func (s *service) Close() error {
	return s.repo.close()
}

func (*noopArchive) Record(context.Context, station.Record) error { return nil }

func (*noopArchive) Runs(context.Context, int) ([]Run, error) { return nil, nil }

func (*noopArchive) Samples(context.Context, string) ([]Row, error) { return nil, nil }

func (*noopArchive) Close() error { return nil }
