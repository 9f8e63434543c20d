// internal/service/order/domain/errors.go
package domain

import "github.com/pkg/errors"

// Failure taxonomy of the placement saga. Callers branch with errors.Is;
// infrastructure wraps these with detail.
var (
	// ErrValidation marks a request rejected for shape before any I/O.
	ErrValidation = errors.New("invalid order request")

	// ErrProductNotFound marks a line referencing an unknown product.
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock is a business rejection, not a fault.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnavailable marks an unreachable or timed-out collaborator. It
	// is retryable and never implies anything about stock or existence.
	ErrUnavailable = errors.New("dependency unavailable")

	// ErrPersistenceFailure marks a failed order-store write.
	ErrPersistenceFailure = errors.New("order persistence failed")

	// ErrPublishFailure marks a confirmed order whose debit messages
	// could not all be handed to the broker. The order is not rolled
	// back; it is flagged for the resend sweep.
	ErrPublishFailure = errors.New("stock-debit publish failed")
)
