package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reconciliation pipeline.
type Metrics struct {
	// Source fetch outcomes by source and result ("ok"/"error")
	FetchTotal *prometheus.CounterVec

	// Fetch latency by source
	FetchLatency *prometheus.HistogramVec

	// Records whose raw status the taxonomy did not recognize, by source
	UnknownStatuses *prometheus.CounterVec

	// Per-record normalization warnings by source and reason
	Warnings *prometheus.CounterVec

	// Records dropped for lacking any resolution key
	ResolutionGaps prometheus.Counter

	// Contact emails truncated for exceeding the fixed form slots
	ContactTruncations prometheus.Counter

	// Identities produced by the last merge
	Identities prometheus.Gauge
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg; tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_source_fetch_total",
			Help: "Source fetch attempts by source and result",
		}, []string{"source", "result"}),

		FetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kyclens_source_fetch_duration_seconds",
			Help:    "Duration of full source fetches including pagination",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"source"}),

		UnknownStatuses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_unknown_statuses_total",
			Help: "Raw statuses the taxonomy mapped to the unknown bucket",
		}, []string{"source"}),

		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_normalization_warnings_total",
			Help: "Per-record normalization warnings by source and reason",
		}, []string{"source", "reason"}),

		ResolutionGaps: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyclens_resolution_gaps_total",
			Help: "Records dropped from merge for lacking a resolution key",
		}),

		ContactTruncations: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyclens_contact_truncations_total",
			Help: "Contact emails dropped for exceeding the fixed form slots",
		}),

		Identities: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kyclens_identities",
			Help: "Identities produced by the most recent merge",
		}),
	}
}

// ObserveFetch records one source fetch outcome.
func (m *Metrics) ObserveFetch(source string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FetchTotal.WithLabelValues(source, result).Inc()
	m.FetchLatency.WithLabelValues(source).Observe(d.Seconds())
}

// IncrementUnknownStatus records a raw status that fell into the unknown bucket.
func (m *Metrics) IncrementUnknownStatus(source string) {
	if m != nil {
		m.UnknownStatuses.WithLabelValues(source).Inc()
	}
}

// IncrementWarning records a recoverable per-record normalization issue.
func (m *Metrics) IncrementWarning(source, reason string) {
	if m != nil {
		m.Warnings.WithLabelValues(source, reason).Inc()
	}
}

// IncrementResolutionGap records a record dropped for lacking a key.
func (m *Metrics) IncrementResolutionGap() {
	if m != nil {
		m.ResolutionGaps.Inc()
	}
}

// IncrementContactTruncation records a truncated contact slot overflow.
func (m *Metrics) IncrementContactTruncation() {
	if m != nil {
		m.ContactTruncations.Inc()
	}
}

// SetIdentities records the size of the latest merged view.
func (m *Metrics) SetIdentities(n int) {
	if m != nil {
		m.Identities.Set(float64(n))
	}
}
