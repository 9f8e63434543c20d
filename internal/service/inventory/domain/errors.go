// internal/service/inventory/domain/errors.go
package domain

import "github.com/pkg/errors"

var (
	// ErrProductNotFound marks an unknown product id on the read path.
	ErrProductNotFound = errors.New("product not found")

	// ErrUnavailable marks a transient store failure. The consumer does
	// not acknowledge the message; bounded redelivery handles it.
	ErrUnavailable = errors.New("inventory store unavailable")
)
