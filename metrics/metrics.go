// Package metrics provides Prometheus instrumentation for the inventory
// engine. All methods are nil-safe so instrumented code never has to guard
// against a missing registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Appended transactions by type.
	TransactionsAppended *prometheus.CounterVec

	// Rejected mutations by reason (validation, insufficient_stock, ...).
	MutationsRejected *prometheus.CounterVec

	// Alerts raised by type and priority.
	AlertsRaised *prometheus.CounterVec

	// Completed inter-location transfers.
	TransfersCompleted prometheus.Counter

	// Full fold duration for a single stock key.
	ProjectionLatency prometheus.Histogram
}

// New registers all engine metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		TransactionsAppended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_transactions_appended_total",
			Help: "Total transactions appended to the ledger by type",
		}, []string{"type"}),

		MutationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_mutations_rejected_total",
			Help: "Total rejected ledger mutations by reason",
		}, []string{"reason"}),

		AlertsRaised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_alerts_raised_total",
			Help: "Total alerts raised by type and priority",
		}, []string{"type", "priority"}),

		TransfersCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "inventory_transfers_completed_total",
			Help: "Total completed inter-location transfers",
		}),

		ProjectionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "inventory_projection_fold_duration_seconds",
			Help:    "Duration of a full ledger fold for one stock key",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) RecordAppend(txType string) {
	if m != nil {
		m.TransactionsAppended.WithLabelValues(txType).Inc()
	}
}

func (m *Metrics) RecordRejection(reason string) {
	if m != nil {
		m.MutationsRejected.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) RecordAlert(alertType, priority string) {
	if m != nil {
		m.AlertsRaised.WithLabelValues(alertType, priority).Inc()
	}
}

func (m *Metrics) RecordTransfer() {
	if m != nil {
		m.TransfersCompleted.Inc()
	}
}

func (m *Metrics) ObserveProjection(d time.Duration) {
	if m != nil {
		m.ProjectionLatency.Observe(d.Seconds())
	}
}
