// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"stockflow/internal/messages"
)

// Order is the aggregate root of the placement saga. It is owned
// exclusively by the saga until persisted; afterwards the order store is
// the authority.
type Order struct {
	ID         string
	CustomerID string
	Status     Status
	Lines      []OrderLine
	TotalCents int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderLine is one product position of an order. Name and unit price are
// snapshots taken at validation time so the order stays auditable through
// later product renames or price changes. Sequence is the 0-based line
// index; together with the order and product ids it forms the dedup key
// of the line's stock-debit message.
type OrderLine struct {
	ProductID      int64
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	Sequence       int
	DebitSent      bool
}

// SubtotalCents is the line's contribution to the order total.
func (l OrderLine) SubtotalCents() int64 {
	return int64(l.Quantity) * l.UnitPriceCents
}

// RequestedLine is the caller's view of a line: product and amount only.
type RequestedLine struct {
	ProductID int64
	Quantity  int
}

// NewOrder validates request shape and creates a pending order. Snapshots
// and the total are filled in during validation; no I/O happens here.
func NewOrder(customerID string, requested []RequestedLine) (*Order, error) {
	if customerID == "" {
		return nil, errors.Wrap(ErrValidation, "customerId is required")
	}
	if len(requested) == 0 {
		return nil, errors.Wrap(ErrValidation, "order must contain at least one line")
	}

	lines := make([]OrderLine, 0, len(requested))
	for i, r := range requested {
		if r.ProductID <= 0 {
			return nil, errors.Wrapf(ErrValidation, "line %d: productId is required", i)
		}
		if r.Quantity < 1 {
			return nil, errors.Wrapf(ErrValidation, "line %d: quantity must be >= 1", i)
		}
		lines = append(lines, OrderLine{
			ProductID: r.ProductID,
			Quantity:  r.Quantity,
			Sequence:  i,
		})
	}

	now := time.Now().UTC()
	return &Order{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		Status:     StatusPending,
		Lines:      lines,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// MarkValidating starts the stock checks.
func (o *Order) MarkValidating() error {
	if o.Status != StatusPending {
		return errors.Errorf("cannot validate order in status %s", o.Status)
	}
	o.Status = StatusValidating
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkRejected terminates an order before anything was persisted.
func (o *Order) MarkRejected() error {
	if o.Status != StatusPending && o.Status != StatusValidating {
		return errors.Errorf("cannot reject order in status %s", o.Status)
	}
	o.Status = StatusRejected
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// Confirm transitions a validated order to CONFIRMED and fixes its total.
// Every line must carry its snapshots by now.
func (o *Order) Confirm() error {
	if o.Status != StatusValidating {
		return errors.Errorf("cannot confirm order in status %s", o.Status)
	}
	var total int64
	for _, l := range o.Lines {
		if l.ProductName == "" || l.UnitPriceCents < 1 {
			return errors.Errorf("line %d is missing its snapshot", l.Sequence)
		}
		total += l.SubtotalCents()
	}
	o.TotalCents = total
	o.Status = StatusConfirmed
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkFailedPublish flags a confirmed order whose debit messages did not
// all reach the broker. The persisted order is never rolled back.
func (o *Order) MarkFailedPublish() error {
	if o.Status != StatusConfirmed {
		return errors.Errorf("cannot flag publish failure in status %s", o.Status)
	}
	o.Status = StatusFailedPublish
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDebitsSent promotes a flagged order back to CONFIRMED once every
// line's debit message has been acknowledged by the broker.
func (o *Order) MarkDebitsSent() error {
	if o.Status != StatusFailedPublish {
		return errors.Errorf("cannot settle debits in status %s", o.Status)
	}
	for _, l := range o.Lines {
		if !l.DebitSent {
			return errors.Errorf("line %d debit still unsent", l.Sequence)
		}
	}
	o.Status = StatusConfirmed
	o.UpdatedAt = time.Now().UTC()
	return nil
}

// DebitMessage builds the stock-debit message for one line.
func (o *Order) DebitMessage(line OrderLine) messages.StockDebitMessage {
	return messages.StockDebitMessage{
		ProductID:    line.ProductID,
		Quantity:     line.Quantity,
		OrderID:      o.ID,
		LineSequence: line.Sequence,
		OccurredAt:   o.CreatedAt,
	}
}
