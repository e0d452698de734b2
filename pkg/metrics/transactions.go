package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// TransactionMetrics records outcomes of stock-adjusting transactions.
type TransactionMetrics struct {
	outcomes *prometheus.CounterVec
	attempts prometheus.Histogram
}

// NewTransactionMetrics registers the transaction metrics on the provided
// registerer. A nil registerer yields a no-op recorder.
func NewTransactionMetrics(reg prometheus.Registerer) *TransactionMetrics {
	if reg == nil {
		return &TransactionMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_transactions_total",
		Help: "Stock-adjusting transactions by kind and outcome.",
	}, []string{"kind", "outcome"})
	attempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stock_transaction_attempts",
		Help:    "Attempts needed before a stock transaction reached a terminal state.",
		Buckets: []float64{1, 2, 3, 4, 5},
	})
	reg.MustRegister(outcomes, attempts)
	return &TransactionMetrics{
		outcomes: outcomes,
		attempts: attempts,
	}
}

// ObserveOutcome increments the counter for the given kind/outcome pair.
func (m *TransactionMetrics) ObserveOutcome(kind, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// ObserveAttempts records how many attempts a transaction consumed.
func (m *TransactionMetrics) ObserveAttempts(count int) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Observe(float64(count))
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
