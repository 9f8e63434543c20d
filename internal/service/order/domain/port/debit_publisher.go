// internal/service/order/domain/port/debit_publisher.go
package port

import (
	"context"

	"stockflow/internal/messages"
)

// DebitPublisher hands one stock-debit message to the durable channel.
// Publish returns only after the broker has acknowledged durable storage;
// it never retries internally, so the retry policy stays with the caller.
// Connectivity failures surface as domain.ErrUnavailable.
type DebitPublisher interface {
	Publish(ctx context.Context, msg messages.StockDebitMessage) error
}
