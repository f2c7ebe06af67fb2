package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecorderPoll(3, nil)
		m.MeterQuery(1, io.EOF)
		m.SampleRecorded(1)
		m.StoreError(1)
		m.ArchiveDropped(3)
		m.SetStationState(1, 1)
	})
	assert.NotNil(t, m.Handler())
}

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.RecorderPoll(40, nil)
	m.RecorderPoll(0, io.EOF)
	m.MeterQuery(2, nil)
	m.MeterQuery(2, io.EOF)
	m.MeterQuery(2, io.EOF)
	m.SampleRecorded(2)
	m.SetStationState(2, 1)
	m.ArchiveDropped(3)
	m.ArchiveDropped(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recorderPolls.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recorderPolls.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.recorderConnected))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.recorderChannels))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.meterQueries.WithLabelValues("2", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stationState.WithLabelValues("2")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.archiveDropped))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.SampleRecorded(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `fridgebench_samples_total{station="4"} 1`)
}
