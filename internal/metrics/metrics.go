// Package metrics provides Prometheus instrumentation for the fraud risk
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SubmissionsTotal counts submitted transactions by assigned risk tier.
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudrisk",
			Name:      "submissions_total",
			Help:      "Total transaction submissions by assigned risk tier.",
		},
		[]string{"tier"},
	)

	// SubmissionFailuresTotal counts rejected submissions by reason.
	SubmissionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudrisk",
			Name:      "submission_failures_total",
			Help:      "Total failed submissions by failure reason.",
		},
		[]string{"reason"},
	)

	// DecisionsTotal counts admin decisions by outcome.
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudrisk",
			Name:      "decisions_total",
			Help:      "Total admin decisions by terminal status.",
		},
		[]string{"outcome"},
	)

	// BlendStrategiesTotal counts which blend policy branch produced each
	// probability.
	BlendStrategiesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudrisk",
			Name:      "blend_strategies_total",
			Help:      "Total scored submissions by blend strategy.",
		},
		[]string{"strategy"},
	)

	// FraudProbability observes the distribution of blended probabilities.
	FraudProbability = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "fraudrisk",
			Name:      "fraud_probability",
			Help:      "Distribution of blended fraud probabilities.",
			Buckets:   []float64{0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.9, 0.95},
		},
	)

	// AlertsTotal counts fraud alerts raised by priority.
	AlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fraudrisk",
			Name:      "alerts_total",
			Help:      "Total fraud alerts raised by priority.",
		},
		[]string{"priority"},
	)

	// PendingTransactions tracks transactions awaiting a decision.
	PendingTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fraudrisk",
			Name:      "pending_transactions",
			Help:      "Transactions currently awaiting an admin decision.",
		},
	)

	// ArchivedTransactionsTotal counts resolved transactions shipped to
	// object storage.
	ArchivedTransactionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "fraudrisk",
			Name:      "archived_transactions_total",
			Help:      "Total resolved transactions archived to object storage.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		SubmissionFailuresTotal,
		DecisionsTotal,
		BlendStrategiesTotal,
		FraudProbability,
		AlertsTotal,
		PendingTransactions,
		ArchivedTransactionsTotal,
	)
}
