package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the ingestion service.
type Metrics struct {
	ReportsIngested  *prometheus.CounterVec // labels: media={image,video,none}
	ReportsRejected  *prometheus.CounterVec // labels: reason={validation,unsupported_media,too_large,storage}
	MediaBytes       prometheus.Counter
	IngestDuration   prometheus.Histogram
	EventPublishErrs prometheus.Counter

	HTTPRequests *prometheus.CounterVec // labels: method, status
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ReportsIngested,
		m.ReportsRejected,
		m.MediaBytes,
		m.IngestDuration,
		m.EventPublishErrs,
		m.HTTPRequests,
	)
	return m
}

// NewUnregisteredMetrics creates Metrics that are never exported. Tests use
// it to avoid "already registered" panics, one-shot commands because nothing
// scrapes them.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReportsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oceanwatch",
			Name:      "reports_ingested_total",
			Help:      "Incident reports accepted and persisted, by media kind.",
		}, []string{"media"}),
		ReportsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oceanwatch",
			Name:      "reports_rejected_total",
			Help:      "Incident report submissions that were not persisted, by reason.",
		}, []string{"reason"}),
		MediaBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oceanwatch",
			Name:      "media_bytes_stored_total",
			Help:      "Total attachment bytes written to the media store.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oceanwatch",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a successful report ingestion including media write.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		EventPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oceanwatch",
			Name:      "event_publish_errors_total",
			Help:      "report.created events that could not be published.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oceanwatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "status"}),
	}
}
