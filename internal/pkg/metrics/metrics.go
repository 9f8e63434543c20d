// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters shared by both services. Each binary only moves the subset it
// owns; the /metrics endpoint is registered in bootstrap handlers.
var (
	OrdersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockflow_orders_placed_total",
		Help: "Orders handled by the placement saga, by outcome.",
	}, []string{"outcome"})

	DebitsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_debits_published_total",
		Help: "Stock-debit messages acknowledged by the broker.",
	})

	DebitResends = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_debit_resends_total",
		Help: "Stock-debit messages re-published by the resend sweep.",
	})

	DebitsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_debits_applied_total",
		Help: "Stock debits applied to product quantities.",
	})

	DebitsDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_debits_duplicate_total",
		Help: "Redelivered stock debits skipped by the applied-debit ledger.",
	})

	StockShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_stock_shortfalls_total",
		Help: "Debits settled with a recorded discrepancy instead of a decrement.",
	})

	DeadLetters = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockflow_dead_letters_total",
		Help: "Messages routed to the dead-letter topic.",
	})
)
