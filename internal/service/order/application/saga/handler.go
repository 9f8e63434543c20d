// internal/service/order/application/saga/handler.go
package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

// OrderContext carries the order and its outbound dependencies through
// the saga chain. All collaborators are abstract ports.
type OrderContext struct {
	Ctx    context.Context
	Order  *domain.Order
	Tracer trace.Tracer

	Products  port.ProductStore
	Publisher port.DebitPublisher
	Repo      domain.OrderRepository

	// LookupTimeout bounds each product-store call individually.
	LookupTimeout time.Duration
}

// Handler is one step of the placement saga.
type Handler interface {
	SetNext(handler Handler) Handler
	Handle(orderCtx *OrderContext) error
}

type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(orderCtx *OrderContext) error {
	if h.next != nil {
		return h.next.Handle(orderCtx)
	}
	return nil
}
