// internal/service/order/application/saga/validate_stock.go
package saga

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockflow/internal/service/order/domain"
)

// ValidateStockHandler checks every line synchronously against the
// product store and captures the name/price snapshots. Any rejection
// happens here, before a single row is written.
type ValidateStockHandler struct {
	NextHandler
}

func (h *ValidateStockHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.ValidateStock")
	defer span.End()

	order := orderCtx.Order
	if err := order.MarkValidating(); err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("order.lines", len(order.Lines)))

	for i := range order.Lines {
		line := &order.Lines[i]

		lookupCtx, cancel := context.WithTimeout(ctx, orderCtx.LookupTimeout)
		product, err := orderCtx.Products.GetProduct(lookupCtx, line.ProductID)
		cancel()

		if err != nil {
			span.RecordError(err)
			if errors.Is(err, domain.ErrProductNotFound) {
				span.SetStatus(codes.Error, "unknown product")
				order.MarkRejected()
				return errors.Wrapf(domain.ErrProductNotFound, "productId %d", line.ProductID)
			}
			// A timeout or connection failure says nothing about stock;
			// it stays ErrUnavailable so the caller can retry.
			span.SetStatus(codes.Error, "product store unavailable")
			return errors.Wrapf(domain.ErrUnavailable, "looking up productId %d: %v", line.ProductID, err)
		}

		if product.Quantity < line.Quantity {
			span.SetStatus(codes.Error, "insufficient stock")
			span.SetAttributes(
				attribute.Int64("product.id", product.ID),
				attribute.Int("stock.available", product.Quantity),
				attribute.Int("stock.requested", line.Quantity),
			)
			order.MarkRejected()
			return errors.Wrapf(domain.ErrInsufficientStock,
				"product %q: available %d, requested %d", product.Name, product.Quantity, line.Quantity)
		}

		line.ProductName = product.Name
		line.UnitPriceCents = product.PriceCents
	}

	span.AddEvent("All lines validated against authoritative stock.")
	return h.executeNext(orderCtx)
}
