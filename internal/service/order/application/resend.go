// internal/service/order/application/resend.go
package application

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

// ResendSweeper is the reconciliation collaborator for the dual-write
// gap: it periodically re-publishes debit messages for lines that were
// never acknowledged by the broker. Re-publishing is safe because the
// consumer's applied-debit ledger drops duplicates.
type ResendSweeper struct {
	repo      domain.OrderRepository
	publisher port.DebitPublisher
	interval  time.Duration
	grace     time.Duration
	batch     int
	tracer    trace.Tracer
}

func NewResendSweeper(
	repo domain.OrderRepository,
	publisher port.DebitPublisher,
	interval, grace time.Duration,
	batch int,
	tracer trace.Tracer,
) *ResendSweeper {
	return &ResendSweeper{
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		grace:     grace,
		batch:     batch,
		tracer:    tracer,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *ResendSweeper) Run(ctx context.Context) {
	logger.Ctx(ctx).Info().Dur("interval", s.interval).Msg("✅ Debit resend sweeper started.")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Ctx(ctx).Info().Msg("🛑 Debit resend sweeper shutting down.")
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Resend sweep failed")
			}
		}
	}
}

// Sweep re-publishes one batch of unsent debits and promotes orders whose
// lines are now all acknowledged back to CONFIRMED.
func (s *ResendSweeper) Sweep(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "app.DebitResendSweep")
	defer span.End()

	before := time.Now().UTC().Add(-s.grace)
	pending, err := s.repo.FindUnsentLines(ctx, before, s.batch)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	span.SetAttributes(attribute.Int("pending.count", len(pending)))

	var mu sync.Mutex
	touched := map[string]struct{}{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, pd := range pending {
		pd := pd
		g.Go(func() error {
			msg := (&domain.Order{ID: pd.OrderID, CreatedAt: pd.CreatedAt}).DebitMessage(pd.Line)
			if err := s.publisher.Publish(gctx, msg); err != nil {
				// Leave the line unsent; the next sweep picks it up.
				logger.Ctx(gctx).Warn().Err(err).
					Str("orderId", pd.OrderID).
					Int("sequence", pd.Line.Sequence).
					Msg("Resend publish failed")
				return nil
			}
			if err := s.repo.MarkLineSent(gctx, pd.OrderID, pd.Line.Sequence); err != nil {
				logger.Ctx(gctx).Warn().Err(err).
					Str("orderId", pd.OrderID).
					Msg("Failed to record resent debit")
				return nil
			}
			metrics.DebitResends.Inc()
			mu.Lock()
			touched[pd.OrderID] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return err
	}

	for orderID := range touched {
		done, err := s.repo.AllLinesSent(ctx, orderID)
		if err != nil || !done {
			continue
		}
		if err := s.repo.UpdateStatus(ctx, orderID, domain.StatusConfirmed); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("orderId", orderID).
				Msg("Failed to promote order after resend")
			continue
		}
		logger.Ctx(ctx).Info().Str("orderId", orderID).
			Msg("Order promoted back to CONFIRMED after debit resend")
	}
	return nil
}
