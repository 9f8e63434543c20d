// internal/service/order/domain/repository.go
package domain

import (
	"context"
	"time"
)

// PendingDebit is an order line whose stock-debit message has not been
// acknowledged by the broker yet, with enough context to rebuild it.
type PendingDebit struct {
	OrderID   string
	CreatedAt time.Time
	Line      OrderLine
}

// OrderRepository persists the order aggregate. Implemented by the GORM
// adapter in infrastructure.
type OrderRepository interface {
	// Save writes the order and all its lines in one transaction.
	Save(ctx context.Context, order *Order) error

	FindByID(ctx context.Context, id string) (*Order, error)

	UpdateStatus(ctx context.Context, id string, status Status) error

	// MarkLineSent records broker acknowledgment of one line's debit.
	MarkLineSent(ctx context.Context, orderID string, sequence int) error

	// FindUnsentLines returns lines of confirmed or publish-flagged
	// orders created before the given instant whose debit is still
	// unsent. Feeds the resend sweep.
	FindUnsentLines(ctx context.Context, before time.Time, limit int) ([]PendingDebit, error)

	// AllLinesSent reports whether every line of the order has its
	// debit acknowledged.
	AllLinesSent(ctx context.Context, orderID string) (bool, error)
}
