package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
	"codeberg.org/mutker/fridgebench/internal/station"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(t.TempDir(), "db", "archive.db")
	cfg.BatchSize = 2
	cfg.BatchTimeout = time.Hour
	return cfg
}

func record(runID string, stationID int, at time.Time, temp *float64, power *float64) station.Record {
	return station.Record{
		StationID: stationID,
		RunID:     runID,
		Model:     "RF-450",
		Channels:  []string{"0001", "0002"},
		Labels:    []string{"CH0001", "CH0002"},
		Sample: series.Sample{
			Time:         at,
			Temperatures: []*float64{temp, nil},
			Power:        series.Power{Power: power, Energy: series.Float(1.5)},
		},
	}
}

func TestDisabledArchiveIsNoop(t *testing.T) {
	a, err := New(DefaultConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, a.Record(context.Background(), record("r", 1, t0, nil, nil)))
	runs, err := a.Runs(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, a.Close())
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = ""
	_, err := New(cfg, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrValidation, errors.Kind(err))
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	a, err := New(testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Record(ctx, record("run-a", 1, t0, series.Float(3.5), series.Float(40))))
	require.NoError(t, a.Record(ctx, record("run-a", 1, t0.Add(10*time.Second), series.Float(3.7), nil)))
	require.NoError(t, a.Record(ctx, record("run-b", 1, t0.Add(time.Hour), nil, series.Float(0))))
	require.NoError(t, a.Record(ctx, record("run-c", 2, t0, nil, nil)))

	runs, err := a.Runs(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-a", runs[0].RunID)
	assert.Equal(t, 2, runs[0].Samples)
	assert.Equal(t, []string{"0001", "0002"}, runs[0].Channels)
	assert.True(t, t0.Equal(runs[0].First))
	assert.True(t, t0.Add(10*time.Second).Equal(runs[0].Last))
	assert.Equal(t, "run-b", runs[1].RunID)

	rows, err := a.Samples(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, rows[0].Temperatures, 2)
	assert.InDelta(t, 3.5, *rows[0].Temperatures[0], 1e-9)
	assert.Nil(t, rows[0].Temperatures[1])
	assert.InDelta(t, 40.0, *rows[0].Power, 1e-9)
	assert.Nil(t, rows[1].Power)
	assert.Nil(t, rows[1].Voltage)
}

func TestCloseFlushesBuffer(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.BatchSize = 100

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Record(ctx, record("run-a", 3, t0, nil, nil)))
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	err = a.Record(ctx, record("run-a", 3, t0.Add(time.Second), nil, nil))
	require.Error(t, err)

	reopened, err := New(cfg, nil)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.Runs(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Samples)
}

func TestSchemaMismatchBacksUp(t *testing.T) {
	cfg := testConfig(t)
	cfg.BatchSize = 0

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Record(context.Background(), record("old", 1, t0, nil, nil)))
	require.NoError(t, a.Close())

	db, err := sql.Open("sqlite3", cfg.DBPath)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE schema_versions SET version = 99`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	a, err = New(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	runs, err := a.Runs(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, runs)

	backups, err := os.ReadDir(cfg.backupDir())
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Contains(t, backups[0].Name(), "archive_v99_")
}

type dropCount struct{ n int }

func (d *dropCount) ArchiveDropped(n int) { d.n += n }

func TestFailedWritesKeepBufferBounded(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.MaxBuffered = 4
	drops := &dropCount{}

	a, err := New(cfg, nil, WithDropCounter(drops))
	require.NoError(t, err)
	repo := a.(*service).repo
	require.NoError(t, repo.db.Close())

	for i := 0; i < 10; i++ {
		err := a.Record(ctx, record("run-a", 1, t0.Add(time.Duration(i)*time.Second), nil, nil))
		if i == 0 {
			require.NoError(t, err)
			continue
		}
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, ErrTransactionFailed))
	}

	repo.mu.Lock()
	buffered := append([]station.Record(nil), repo.buffer...)
	repo.mu.Unlock()

	require.Len(t, buffered, 4)
	assert.True(t, t0.Add(6*time.Second).Equal(buffered[0].Sample.Time))
	assert.True(t, t0.Add(9*time.Second).Equal(buffered[3].Sample.Time))
	assert.Equal(t, 6, drops.n)
	assert.Error(t, a.Close())
}

func TestMaxBufferedDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 200, cfg.maxBuffered())

	cfg.MaxBuffered = 5
	assert.Equal(t, defaultBatchSize, cfg.maxBuffered())

	cfg.MaxBuffered = 50
	assert.Equal(t, 50, cfg.maxBuffered())

	cfg.MaxBuffered = -1
	assert.Error(t, cfg.Validate())
}
