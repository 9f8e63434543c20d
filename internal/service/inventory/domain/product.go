// internal/service/inventory/domain/product.go
package domain

// Product is the authoritative inventory record. Quantity never goes
// negative: a decrement that would cross zero is rejected and recorded
// as a shortfall instead of being clamped.
type Product struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Quantity    int
}
