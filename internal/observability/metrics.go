// Package observability exposes acquisition counters and station gauges in Prometheus format.
package observability

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fridgebench"

// Metrics is nil-safe: every method on a nil *Metrics is a no-op, so components can run without it.
type Metrics struct {
	registry *prometheus.Registry

	recorderPolls     *prometheus.CounterVec
	recorderChannels  prometheus.Gauge
	recorderConnected prometheus.Gauge
	meterQueries      *prometheus.CounterVec
	samples           *prometheus.CounterVec
	storeErrors       *prometheus.CounterVec
	archiveDropped    prometheus.Counter
	stationState      *prometheus.GaugeVec
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recorderPolls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_polls_total",
			Help:      "Temperature recorder polls by result.",
		}, []string{"result"}),
		recorderChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recorder_channels",
			Help:      "Channels decoded in the latest successful recorder poll.",
		}),
		recorderConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recorder_connected",
			Help:      "1 when the latest recorder poll succeeded.",
		}),
		meterQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "powermeter_queries_total",
			Help:      "Power meter queries by station and result.",
		}, []string{"station", "result"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_total",
			Help:      "Samples appended per station.",
		}, []string{"station"}),
		storeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Data file and sink write failures per station.",
		}, []string{"station"}),
		archiveDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archive_dropped_total",
			Help:      "Samples discarded from the archive buffer after failed writes.",
		}),
		stationState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "station_state",
			Help:      "Collection state per station (0 idle, 1 running, 2 stopping).",
		}, []string{"station"}),
	}

	m.registry.MustRegister(
		m.recorderPolls,
		m.recorderChannels,
		m.recorderConnected,
		m.meterQueries,
		m.samples,
		m.storeErrors,
		m.archiveDropped,
		m.stationState,
	)

	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecorderPoll(channels int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.recorderPolls.WithLabelValues("error").Inc()
		m.recorderConnected.Set(0)
		return
	}
	m.recorderPolls.WithLabelValues("ok").Inc()
	m.recorderChannels.Set(float64(channels))
	m.recorderConnected.Set(1)
}

func (m *Metrics) MeterQuery(station int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.meterQueries.WithLabelValues(strconv.Itoa(station), result).Inc()
}

func (m *Metrics) SampleRecorded(station int) {
	if m == nil {
		return
	}
	m.samples.WithLabelValues(strconv.Itoa(station)).Inc()
}

func (m *Metrics) StoreError(station int) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(strconv.Itoa(station)).Inc()
}

func (m *Metrics) ArchiveDropped(n int) {
	if m == nil {
		return
	}
	m.archiveDropped.Add(float64(n))
}

func (m *Metrics) SetStationState(station, state int) {
	if m == nil {
		return
	}
	m.stationState.WithLabelValues(strconv.Itoa(station)).Set(float64(state))
}
