// internal/messages/stock_debit.go

// Package messages holds the wire contract shared by the order and
// inventory services. The field set is closed: unknown fields in received
// payloads are ignored for forward compatibility, while missing required
// fields make a payload malformed.
package messages

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// ErrMalformed marks a payload that can never be processed, no matter how
// often it is redelivered. The consumer routes such messages straight to
// the dead-letter topic.
var ErrMalformed = errors.New("malformed stock-debit payload")

// StockDebitMessage is one pending decrement of a product's quantity,
// emitted once per order line. OrderID, ProductID and LineSequence
// together form the deduplication key that makes redelivery safe.
type StockDebitMessage struct {
	ProductID    int64     `json:"productId"`
	Quantity     int       `json:"quantity"`
	OrderID      string    `json:"orderId"`
	LineSequence int       `json:"lineSequence"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// DedupKey returns the stable identity of this debit occurrence.
func (m StockDebitMessage) DedupKey() string {
	return fmt.Sprintf("%s:%d:%d", m.OrderID, m.ProductID, m.LineSequence)
}

// Encode serializes the message canonically (fixed field order, UTC
// RFC 3339 timestamp).
func (m StockDebitMessage) Encode() ([]byte, error) {
	m.OccurredAt = m.OccurredAt.UTC()
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, "encoding stock-debit message")
	}
	return data, nil
}

// DecodeStockDebit parses and validates a received payload. Violations of
// the contract (bad JSON, missing or out-of-range required fields) return
// ErrMalformed.
func DecodeStockDebit(data []byte) (StockDebitMessage, error) {
	var m StockDebitMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return StockDebitMessage{}, errors.Wrapf(ErrMalformed, "invalid json: %v", err)
	}
	if m.ProductID <= 0 {
		return StockDebitMessage{}, errors.Wrap(ErrMalformed, "productId is required")
	}
	if m.Quantity < 1 {
		return StockDebitMessage{}, errors.Wrap(ErrMalformed, "quantity must be >= 1")
	}
	if m.OrderID == "" {
		return StockDebitMessage{}, errors.Wrap(ErrMalformed, "orderId is required")
	}
	if m.LineSequence < 0 {
		return StockDebitMessage{}, errors.Wrap(ErrMalformed, "lineSequence must be >= 0")
	}
	if m.OccurredAt.IsZero() {
		return StockDebitMessage{}, errors.Wrap(ErrMalformed, "occurredAt is required")
	}
	return m, nil
}
