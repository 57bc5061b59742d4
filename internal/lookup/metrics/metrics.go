package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the lookup surface.
type Metrics struct {
	// Key lookups by result ("hit"/"miss"/"bad_key")
	Lookups *prometheus.CounterVec

	// Searches by result ("ok"/"no_query")
	Searches *prometheus.CounterVec

	// Round status checks by result ("ok"/"not_found")
	RoundChecks *prometheus.CounterVec

	// Forced refreshes by result ("ok"/"error")
	Refreshes *prometheus.CounterVec
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg; tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_lookup_total",
			Help: "Identity key lookups by result",
		}, []string{"result"}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_search_total",
			Help: "Identity searches by result",
		}, []string{"result"}),
		RoundChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_round_check_total",
			Help: "Grant round status checks by result",
		}, []string{"result"}),
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyclens_refresh_total",
			Help: "Forced refreshes by result",
		}, []string{"result"}),
	}
}

// IncrementLookup records one key lookup outcome.
func (m *Metrics) IncrementLookup(result string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(result).Inc()
}

// IncrementSearch records one search outcome.
func (m *Metrics) IncrementSearch(result string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(result).Inc()
}

// IncrementRoundCheck records one round status check outcome.
func (m *Metrics) IncrementRoundCheck(result string) {
	if m == nil {
		return
	}
	m.RoundChecks.WithLabelValues(result).Inc()
}

// IncrementRefresh records one forced refresh outcome.
func (m *Metrics) IncrementRefresh(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}
