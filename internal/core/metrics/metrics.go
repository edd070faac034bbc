// Package metrics holds the Prometheus collectors for matching and assignment.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Match outcomes.
const (
	OutcomeMatched   = "matched"
	OutcomeNoMatch   = "no_match"
	OutcomeError     = "error"
	CacheHit         = "hit"
	CacheMiss        = "miss"
	CacheError       = "error"
	CacheInvalidated = "invalidated"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	MatchesTotal     *prometheus.CounterVec
	AssignmentsTotal *prometheus.CounterVec
	MatchDuration    prometheus.Histogram
	SnapshotCache    *prometheus.CounterVec
}

// New creates a Metrics registered with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundskeeper_matches_total",
				Help: "Territory match attempts by outcome",
			},
			[]string{"outcome"},
		),
		AssignmentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundskeeper_assignments_total",
				Help: "Recorded territory assignments by type",
			},
			[]string{"type"},
		),
		MatchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "groundskeeper_match_duration_seconds",
				Help:    "Time spent evaluating rules for one entity",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
		),
		SnapshotCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groundskeeper_snapshot_cache_total",
				Help: "Candidate snapshot cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// Nop returns metrics registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
