// internal/service/inventory/domain/ports.go
package domain

import (
	"context"
	"time"
)

// InventoryStore is the persistence boundary of the reconciliation
// consumer. ApplyDebit must perform its read-verify-decrement-and-record
// steps as one atomic unit so concurrent consumers cannot race a product
// below zero or lose an update.
type InventoryStore interface {
	GetProduct(ctx context.Context, id int64) (*Product, error)

	// ApplyDebit settles one debit: if the dedup key is already in the
	// ledger it reports OutcomeDuplicate; otherwise it decrements the
	// product (OutcomeApplied) or records a shortfall
	// (OutcomeShortfall), writing the ledger entry in the same
	// transaction either way. Transient failures are ErrUnavailable.
	ApplyDebit(ctx context.Context, debit AppliedDebit) (Outcome, *Shortfall, error)
}

// DedupCache is an optional fast path in front of the ledger. It is
// best-effort only: a miss proves nothing, a hit saves a transaction.
// The ledger's primary key stays the authority.
type DedupCache interface {
	Seen(ctx context.Context, dedupKey string) bool
	Record(ctx context.Context, dedupKey string, ttl time.Duration)
}

// ProductLocker serializes the check-and-decrement region per product
// across consumer instances when the store's own row locking cannot
// cover the deployment. Release must always be called.
type ProductLocker interface {
	LockProduct(productID int64) (release func(), err error)
}
