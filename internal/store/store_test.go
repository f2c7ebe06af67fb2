package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeberg.org/mutker/fridgebench/internal/errors"
	"codeberg.org/mutker/fridgebench/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var started = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

func testMeta() Metadata {
	return Metadata{Started: started, Model: "RF-450", Labels: []string{"CH0001", "Freezer"}}
}

func sample(at time.Time, t1, t2, p *float64) series.Sample {
	return series.Sample{
		Time:         at,
		Temperatures: []*float64{t1, t2},
		Power: series.Power{
			Voltage: series.Float(110.1),
			Current: series.Float(0.5),
			Power:   p,
			Energy:  series.Float(12.5),
		},
	}
}

func TestOpenWritesHeaderOnce(t *testing.T) {
	path := FileName(t.TempDir(), 3, started)
	assert.Equal(t, "20240301_083000_station3.csv", filepath.Base(path))

	s, err := Open(path, testMeta())
	require.NoError(t, err)
	require.NoError(t, s.Append(sample(started, series.Float(3.5), nil, series.Float(45))))
	require.NoError(t, s.Close())

	s, err = Open(path, testMeta())
	require.NoError(t, err)
	require.NoError(t, s.Append(sample(started.Add(10*time.Second), series.Float(3.6), series.Float(-18), nil)))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "DateTime: 20240301_083000", lines[0])
	assert.Equal(t, "Model: RF-450", lines[1])
	assert.Equal(t, "Date,Time,CH0001,Freezer,U(V),I(A),P(W),WP(Wh)", lines[2])
	assert.Equal(t, "2024-03-01,08:30:00,3.5,,110.1,0.5,45,12.5", lines[3])
	assert.Equal(t, "2024-03-01,08:30:10,3.6,-18,110.1,0.5,,12.5", lines[4])
	assert.Equal(t, 1, strings.Count(string(raw), "Date,Time"))
}

func TestAppendRejectsWrongWidth(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "x.csv"), testMeta())
	require.NoError(t, err)
	defer s.Close()

	err = s.Append(series.Sample{Time: started, Temperatures: []*float64{nil}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrRowWidth))
}

func TestAppendAfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "x.csv"), testMeta())
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	err = s.Append(sample(started, nil, nil, nil))
	require.Error(t, err)
	assert.Equal(t, errors.ErrResource, errors.Kind(err))
}

func TestOpenUnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := Open(filepath.Join(blocker, "sub", "data.csv"), testMeta())
	require.Error(t, err)
	assert.Equal(t, errors.ErrResource, errors.Kind(err))
}

func TestReadSamplesRoundTrip(t *testing.T) {
	path := FileName(t.TempDir(), 1, started)
	s, err := Open(path, testMeta())
	require.NoError(t, err)
	require.NoError(t, s.Append(sample(started, series.Float(3.5), nil, series.Float(45))))
	require.NoError(t, s.Append(sample(started.Add(time.Minute), series.Float(4), series.Float(-17.5), series.Float(0))))
	require.NoError(t, s.Close())

	meta, samples, err := ReadSamples(path, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "RF-450", meta.Model)
	assert.True(t, started.Equal(meta.Started))
	assert.Equal(t, []string{"CH0001", "Freezer"}, meta.Labels)

	require.Len(t, samples, 2)
	assert.True(t, started.Equal(samples[0].Time))
	assert.InDelta(t, 3.5, *samples[0].Temperatures[0], 1e-9)
	assert.Nil(t, samples[0].Temperatures[1])
	assert.InDelta(t, 45.0, *samples[0].Power.Power, 1e-9)
	assert.InDelta(t, -17.5, *samples[1].Temperatures[1], 1e-9)
}

func TestReadSamplesWithoutHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte("DateTime: 20240301_083000\n"), 0o644))

	_, _, err := ReadSamples(path, time.UTC)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrNoHeader))
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"20240101_000000_station2.csv",
		"20240301_083000_station2.csv",
		"20240401_000000_station3.csv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	path, err := Latest(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, "20240301_083000_station2.csv", filepath.Base(path))

	_, err = Latest(dir, 5)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrNoFile))
}
