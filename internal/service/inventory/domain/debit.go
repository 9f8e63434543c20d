// internal/service/inventory/domain/debit.go
package domain

import "time"

// AppliedDebit is one entry of the applied-debit ledger: the append-only
// set of dedup keys that have already been settled. Entries are never
// deleted, which keeps redelivery safe for as long as the broker can
// possibly redeliver.
type AppliedDebit struct {
	DedupKey     string
	OrderID      string
	ProductID    int64
	LineSequence int
	Quantity     int
	AppliedAt    time.Time
}

// Shortfall records a debit that settled with a discrepancy instead of a
// decrement. Distinct from a processing failure: the message is
// acknowledged, stock stays non-negative, and the discrepancy is durable
// for reconciliation.
type Shortfall struct {
	DedupKey   string
	ProductID  int64
	Requested  int
	Available  int
	Reason     string
	OccurredAt time.Time
}

// Shortfall reasons.
const (
	ShortfallInsufficient   = "insufficient_stock"
	ShortfallProductMissing = "product_missing"
)

// Outcome classifies what applying a debit did.
type Outcome int

const (
	// OutcomeNone is the zero value returned alongside errors.
	OutcomeNone Outcome = iota
	// OutcomeApplied means the quantity was decremented and the ledger
	// entry written, atomically.
	OutcomeApplied
	// OutcomeDuplicate means the dedup key was already in the ledger;
	// nothing changed.
	OutcomeDuplicate
	// OutcomeShortfall means the debit settled without a decrement and
	// a shortfall record was written.
	OutcomeShortfall
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeShortfall:
		return "shortfall"
	default:
		return "unknown"
	}
}
