package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/logger"
	"codeberg.org/mutker/fridgebench/internal/station"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db            *sql.DB
	logger        logger.Logger
	cfg           Config
	mu            sync.Mutex
	buffer        []station.Record
	dropped       int
	drops         DropCounter
	closed        bool
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

func newRepository(cfg Config, log logger.Logger, drops DropCounter) (*repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := "file:" + cfg.DBPath + "?_journal=WAL&_foreign_keys=1&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}
	// One writer; sqlite serialises anyway.
	db.SetMaxOpenConns(1)

	if err := ValidateAndUpdateSchema(db, cfg, log); err != nil {
		db.Close()
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Dur("batch_timeout", cfg.BatchTimeout).
		Int("max_buffered", cfg.maxBuffered()).
		Msg("Archive initialized")

	repo := &repository{
		db:            db,
		logger:        log,
		cfg:           cfg,
		buffer:        make([]station.Record, 0, cfg.BatchSize),
		drops:         drops,
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}

	if cfg.BatchSize > 1 && cfg.BatchTimeout > 0 {
		repo.flushTicker = time.NewTicker(cfg.BatchTimeout)
		go repo.flusher()
	} else {
		close(repo.flushDoneChan)
	}

	return repo, nil
}

func (r *repository) record(rec station.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.New().New(ErrClosed)
	}

	rec.Sample = rec.Sample.Clone()
	r.buffer = append(r.buffer, rec)

	if len(r.buffer) < r.cfg.BatchSize {
		return nil
	}
	err := r.flush()
	if err != nil {
		r.trim()
	}
	return err
}

// trim drops the oldest buffered records beyond the configured cap. It must be called with r.mu held.
func (r *repository) trim() {
	limit := r.cfg.maxBuffered()
	over := len(r.buffer) - limit
	if over <= 0 {
		return
	}

	r.buffer = append(r.buffer[:0], r.buffer[over:]...)
	r.dropped += over
	r.drops.ArchiveDropped(over)

	r.logger.Warn().
		Int("dropped", over).
		Int("dropped_total", r.dropped).
		Int("max_buffered", limit).
		Msg("Archive buffer full, dropping oldest samples")
}

func (r *repository) close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	close(r.shutdownChan)
	if r.flushTicker != nil {
		r.flushTicker.Stop()
	}
	<-r.flushDoneChan

	// Whatever the flusher did not get to, e.g. with batching disabled.
	r.mu.Lock()
	flushErr := r.flush()
	r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.logger.Warn().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	r.logger.Info().Msg("Archive closed")
	return flushErr
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				r.logger.Warn().Err(err).Msg("Periodic archive flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			return
		}
	}
}

// flush writes the buffer in one transaction. It must be called with r.mu held.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	rollback := func(cause error) error {
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, cause)
	}

	runStmt, err := tx.Prepare(insertRunSQL)
	if err != nil {
		return rollback(err)
	}
	defer runStmt.Close()

	sampleStmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		return rollback(err)
	}
	defer sampleStmt.Close()

	for _, rec := range r.buffer {
		if _, err := runStmt.Exec(rec.RunID, rec.StationID, rec.Model, strings.Join(rec.Channels, ",")); err != nil {
			return rollback(err)
		}

		temps, err := json.Marshal(rec.Sample.Temperatures)
		if err != nil {
			return rollback(err)
		}

		p := rec.Sample.Power
		if _, err := sampleStmt.Exec(
			rec.RunID,
			rec.Sample.Time.UnixMilli(),
			string(temps),
			nullFloat(p.Voltage),
			nullFloat(p.Current),
			nullFloat(p.Power),
			nullFloat(p.Energy),
		); err != nil {
			return rollback(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed samples to archive")
	r.buffer = r.buffer[:0]

	return nil
}

func (r *repository) runs(ctx context.Context, stationID int) ([]Run, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectRunsSQL, stationID)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run         Run
			channels    string
			first, last int64
		)
		if err := rows.Scan(&run.RunID, &run.StationID, &run.Model, &channels, &run.Samples, &first, &last); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		if channels != "" {
			run.Channels = strings.Split(channels, ",")
		}
		run.First = time.UnixMilli(first)
		run.Last = time.UnixMilli(last)
		out = append(out, run)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	return out, nil
}

func (r *repository) samples(ctx context.Context, runID string) ([]Row, error) {
	errFactory := errors.New()

	rows, err := r.db.QueryContext(ctx, selectSamplesSQL, runID)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row                  Row
			ts                   int64
			temps                string
			volt, cur, pow, ener sql.NullFloat64
		)
		if err := rows.Scan(&ts, &temps, &volt, &cur, &pow, &ener); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		if err := json.Unmarshal([]byte(temps), &row.Temperatures); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		row.Time = time.UnixMilli(ts)
		row.Voltage = fromNull(volt)
		row.Current = fromNull(cur)
		row.Power = fromNull(pow)
		row.Energy = fromNull(ener)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	return out, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
