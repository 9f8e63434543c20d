// internal/service/inventory/application/applier.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/messages"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/inventory/domain"
)

// OpsEvent is a settled discrepancy surfaced to operators (shortfall
// feed, dead-letter log).
type OpsEvent struct {
	Kind      string    `json:"kind"`
	DedupKey  string    `json:"dedupKey,omitempty"`
	ProductID int64     `json:"productId,omitempty"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// OpsNotifier fans OpsEvents out to whoever watches; best effort.
type OpsNotifier interface {
	Notify(event OpsEvent)
}

// DebitApplier settles stock-debit messages idempotently. The ordering
// of guarantees: the dedup cache may short-circuit, but only the store's
// atomic ledger-plus-decrement decides; the cache is repopulated after
// the fact and never trusted for correctness.
type DebitApplier struct {
	store    domain.InventoryStore
	cache    domain.DedupCache
	locks    domain.ProductLocker
	notifier OpsNotifier
	cacheTTL time.Duration
	tracer   trace.Tracer
}

func NewDebitApplier(
	store domain.InventoryStore,
	cache domain.DedupCache,
	locks domain.ProductLocker,
	notifier OpsNotifier,
	cacheTTL time.Duration,
	tracer trace.Tracer,
) *DebitApplier {
	return &DebitApplier{
		store:    store,
		cache:    cache,
		locks:    locks,
		notifier: notifier,
		cacheTTL: cacheTTL,
		tracer:   tracer,
	}
}

// Apply settles one delivered debit. Duplicate and shortfall outcomes are
// terminal successes: the caller acknowledges the message. Only a
// transient error (ErrUnavailable) leaves the message unacknowledged.
func (a *DebitApplier) Apply(ctx context.Context, msg messages.StockDebitMessage) (domain.Outcome, error) {
	ctx, span := a.tracer.Start(ctx, "inventory.ApplyDebit", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	key := msg.DedupKey()
	span.SetAttributes(
		attribute.String("debit.dedup_key", key),
		attribute.Int64("product.id", msg.ProductID),
		attribute.Int("debit.quantity", msg.Quantity),
	)

	if a.cache != nil && a.cache.Seen(ctx, key) {
		metrics.DebitsDuplicate.Inc()
		span.AddEvent("Duplicate skipped via dedup cache.")
		return domain.OutcomeDuplicate, nil
	}

	if a.locks != nil {
		release, err := a.locks.LockProduct(msg.ProductID)
		if err != nil {
			span.RecordError(err)
			return domain.OutcomeNone, domain.ErrUnavailable
		}
		defer release()
	}

	debit := domain.AppliedDebit{
		DedupKey:     key,
		OrderID:      msg.OrderID,
		ProductID:    msg.ProductID,
		LineSequence: msg.LineSequence,
		Quantity:     msg.Quantity,
		AppliedAt:    time.Now().UTC(),
	}

	outcome, shortfall, err := a.store.ApplyDebit(ctx, debit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store apply failed")
		return domain.OutcomeNone, err
	}

	if a.cache != nil {
		a.cache.Record(ctx, key, a.cacheTTL)
	}

	switch outcome {
	case domain.OutcomeApplied:
		metrics.DebitsApplied.Inc()
		logger.Ctx(ctx).Info().
			Str("dedupKey", key).
			Int64("productId", msg.ProductID).
			Int("quantity", msg.Quantity).
			Msg("Stock debit applied")
	case domain.OutcomeDuplicate:
		metrics.DebitsDuplicate.Inc()
		logger.Ctx(ctx).Info().
			Str("dedupKey", key).
			Msg("Redelivered stock debit skipped by ledger")
	case domain.OutcomeShortfall:
		metrics.StockShortfalls.Inc()
		logger.Ctx(ctx).Warn().
			Str("dedupKey", key).
			Int64("productId", msg.ProductID).
			Str("reason", shortfall.Reason).
			Int("requested", shortfall.Requested).
			Int("available", shortfall.Available).
			Msg("⚠️ Stock debit settled with shortfall")
		if a.notifier != nil {
			a.notifier.Notify(OpsEvent{
				Kind:      "stock_shortfall",
				DedupKey:  key,
				ProductID: msg.ProductID,
				Detail:    shortfall.Reason,
				At:        shortfall.OccurredAt,
			})
		}
	}
	span.AddEvent("Debit settled: " + outcome.String())
	return outcome, nil
}
