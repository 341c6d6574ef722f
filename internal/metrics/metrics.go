// Package metrics exposes Prometheus counters for lifecycle transitions,
// gate rejections and country syncs. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync result labels
const (
	SyncUpserted = "upserted"
	SyncSkipped  = "skipped"
)

type Metrics struct {
	LifecycleTransitions *prometheus.CounterVec
	AuthFailures         *prometheus.CounterVec
	CountrySyncRecords   *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LifecycleTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_lifecycle_transitions_total",
			Help: "Committed lifecycle transitions by entity and transition",
		}, []string{"entity", "transition"}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_auth_failures_total",
			Help: "Requests rejected by the authorization gate, by response code",
		}, []string{"code"}),
		CountrySyncRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "travel_country_sync_records_total",
			Help: "Country records processed by the external source sync",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementTransition(entity, transition string) {
	if m == nil {
		return
	}
	m.LifecycleTransitions.WithLabelValues(entity, transition).Inc()
}

func (m *Metrics) IncrementAuthFailure(code string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) AddSyncRecords(result string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.CountrySyncRecords.WithLabelValues(result).Add(float64(count))
}
