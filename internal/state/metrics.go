package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation outcomes.
const (
	outcomeCommitted  = "committed"
	outcomeReconciled = "reconciled"
	outcomeReverted   = "reverted"
	outcomeRejected   = "rejected"
)

var (
	optimisticMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_optimistic_mutations_total",
			Help: "Optimistic mutations by collection, operation and outcome",
		},
		[]string{"collection", "operation", "outcome"},
	)

	remoteMutationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storefront_remote_mutation_duration_seconds",
			Help:    "Duration of the remote call behind an optimistic mutation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "operation"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "storefront_state_sessions",
			Help: "Number of session state managers currently held in memory",
		},
	)
)
