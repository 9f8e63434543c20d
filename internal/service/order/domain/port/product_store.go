// internal/service/order/domain/port/product_store.go
package port

import "context"

// Product is the saga's read-only view of the inventory service's
// authoritative product record.
type Product struct {
	ID         int64
	Name       string
	PriceCents int64
	Quantity   int
}

// ProductStore is the synchronous, side-effect-free product lookup used
// for stock validation. Implementations map transport failures onto
// domain.ErrProductNotFound / domain.ErrUnavailable; a timeout is always
// ErrUnavailable, never a stock verdict.
type ProductStore interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
}
