// internal/service/order/application/saga/persist_order.go
package saga

import (
	"github.com/pkg/errors"

	"stockflow/internal/service/order/domain"
)

// PersistOrderHandler commits the confirmed order and all its lines in
// one atomic write. From here on the order exists for the customer no
// matter what happens to the debit messages.
type PersistOrderHandler struct {
	NextHandler
}

func (h *PersistOrderHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PersistOrder")
	defer span.End()

	order := orderCtx.Order
	if err := order.Confirm(); err != nil {
		span.RecordError(err)
		return err
	}

	if err := orderCtx.Repo.Save(ctx, order); err != nil {
		span.RecordError(err)
		return errors.Wrapf(domain.ErrPersistenceFailure, "saving order %s: %v", order.ID, err)
	}
	span.AddEvent("Confirmed order saved to DB.")

	return h.executeNext(orderCtx)
}
