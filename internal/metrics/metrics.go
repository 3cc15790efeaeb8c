// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"time"

	"charge-sentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "charge_sentinel"

type PrometheusMetrics struct {
	// Ingestion
	EventsTotal     *prometheus.CounterVec
	EventsDuplicate prometheus.Counter
	ProcessingTime  prometheus.Histogram

	// Detection
	AnomaliesTotal *prometheus.CounterVec
	IncidentsTotal *prometheus.CounterVec
	StoreIncidents prometheus.Gauge

	// Delivery
	NotifierErrors *prometheus.CounterVec
}

// NewPrometheusMetrics registers every metric on reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Total number of flow events processed",
			},
			[]string{"action", "status"},
		),

		EventsDuplicate: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_duplicate_total",
				Help:      "Total number of flow events dropped as already seen",
			},
		),

		ProcessingTime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_processing_seconds",
				Help:      "Time spent processing one flow event",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
		),

		AnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "anomalies_total",
				Help:      "Total number of anomalies detected",
			},
			[]string{"action"},
		),

		IncidentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "incidents_total",
				Help:      "Total number of incidents created",
			},
			[]string{"category", "severity"},
		),

		StoreIncidents: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_incidents",
				Help:      "Number of incidents currently held in the store",
			},
		),

		NotifierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifier_errors_total",
				Help:      "Total number of failed incident notifications",
			},
			[]string{"notifier"},
		),
	}
}

func (m *PrometheusMetrics) RecordEvent(e model.FlowEvent) {
	m.EventsTotal.WithLabelValues(e.Action, string(e.Status)).Inc()
}

func (m *PrometheusMetrics) RecordDuplicate() {
	m.EventsDuplicate.Inc()
}

func (m *PrometheusMetrics) RecordAnomaly(e model.FlowEvent) {
	m.AnomaliesTotal.WithLabelValues(e.Action).Inc()
}

func (m *PrometheusMetrics) RecordIncident(inc model.Incident) {
	m.IncidentsTotal.WithLabelValues(string(inc.Category), string(inc.Severity)).Inc()
}

func (m *PrometheusMetrics) RecordNotifierError(notifier string) {
	m.NotifierErrors.WithLabelValues(notifier).Inc()
}

func (m *PrometheusMetrics) SetStoreSize(n int) {
	m.StoreIncidents.Set(float64(n))
}

func (m *PrometheusMetrics) ObserveProcessing(start time.Time) {
	m.ProcessingTime.Observe(time.Since(start).Seconds())
}
