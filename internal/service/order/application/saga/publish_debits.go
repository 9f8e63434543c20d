// internal/service/order/application/saga/publish_debits.go
package saga

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/order/domain"
)

// PublishDebitsHandler emits one stock-debit message per line after the
// order row is durable. A publish failure does not roll the order back;
// the order is flagged FAILED_PUBLISH and the resend sweep owes every
// confirmed order either all-debits-sent or that flag.
type PublishDebitsHandler struct {
	NextHandler
}

func (h *PublishDebitsHandler) Handle(orderCtx *OrderContext) error {
	ctx, span := orderCtx.Tracer.Start(orderCtx.Ctx, "saga.PublishDebits")
	defer span.End()

	order := orderCtx.Order
	for i := range order.Lines {
		line := &order.Lines[i]
		msg := order.DebitMessage(*line)

		if err := orderCtx.Publisher.Publish(ctx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "debit publish failed")
			span.SetAttributes(attribute.Int("line.sequence", line.Sequence))

			if mErr := order.MarkFailedPublish(); mErr == nil {
				if uErr := orderCtx.Repo.UpdateStatus(ctx, order.ID, domain.StatusFailedPublish); uErr != nil {
					logger.Ctx(ctx).Error().Err(uErr).Str("orderId", order.ID).
						Msg("🚨 CRITICAL: failed to flag order for debit resend")
				}
			}
			return errors.Wrapf(domain.ErrPublishFailure,
				"order %s line %d: %v", order.ID, line.Sequence, err)
		}

		line.DebitSent = true
		metrics.DebitsPublished.Inc()
		if err := orderCtx.Repo.MarkLineSent(ctx, order.ID, line.Sequence); err != nil {
			// The debit is on the wire; worst case the sweep re-publishes
			// it and the consumer's ledger drops the duplicate.
			logger.Ctx(ctx).Warn().Err(err).Str("orderId", order.ID).
				Int("sequence", line.Sequence).
				Msg("Failed to record debit-sent flag")
		}
	}

	span.AddEvent("All stock-debit messages acknowledged by broker.")
	return h.executeNext(orderCtx)
}
