// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/service/order/application/saga"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

// OrderApplicationService orchestrates the placement saga. It owns no
// business rules itself; those live in the domain and the saga steps.
type OrderApplicationService struct {
	orderRepo     domain.OrderRepository
	products      port.ProductStore
	publisher     port.DebitPublisher
	lookupTimeout time.Duration
	tracer        trace.Tracer
}

func NewOrderApplicationService(
	orderRepo domain.OrderRepository,
	products port.ProductStore,
	publisher port.DebitPublisher,
	lookupTimeout time.Duration,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		orderRepo:     orderRepo,
		products:      products,
		publisher:     publisher,
		lookupTimeout: lookupTimeout,
		tracer:        tracer,
	}
}

// PlaceOrder runs the full saga: validate stock, persist, publish debits.
//
// The returned order is non-nil exactly when a durable order exists. In
// particular a publish failure returns BOTH the persisted order and
// ErrPublishFailure: the customer keeps their order, the operator gets
// the escalation, and the resend sweep owns the rest.
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()

	order, err := domain.NewOrder(req.CustomerID, req.RequestedLines())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		metrics.OrdersPlaced.WithLabelValues("validation_error").Inc()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("customer.id", order.CustomerID),
	)

	orderContext := &saga.OrderContext{
		Ctx:           ctx,
		Order:         order,
		Tracer:        s.tracer,
		Products:      s.products,
		Publisher:     s.publisher,
		Repo:          s.orderRepo,
		LookupTimeout: s.lookupTimeout,
	}

	if err := s.buildChain().Handle(orderContext); err != nil {
		span.RecordError(err)
		s.countFailure(err)

		if errors.Is(err, domain.ErrPublishFailure) {
			// Order row is durable; only the messaging leg failed.
			logger.Ctx(ctx).Error().Err(err).Str("orderId", order.ID).
				Msg("Order confirmed but debit publish failed; flagged for resend")
			return order, err
		}

		logger.Ctx(ctx).Info().Err(err).Str("orderId", order.ID).
			Msg("Order placement did not complete")
		return nil, err
	}

	metrics.OrdersPlaced.WithLabelValues("confirmed").Inc()
	logger.Ctx(ctx).Info().
		Str("orderId", order.ID).
		Str("customerId", order.CustomerID).
		Int64("totalCents", order.TotalCents).
		Msg("✅ Order confirmed and all debits published")
	span.AddEvent("Order confirmed.")
	return order, nil
}

func (s *OrderApplicationService) buildChain() saga.Handler {
	chain := new(saga.ValidateStockHandler)
	chain.
		SetNext(new(saga.PersistOrderHandler)).
		SetNext(new(saga.PublishDebitsHandler))
	return chain
}

func (s *OrderApplicationService) countFailure(err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		metrics.OrdersPlaced.WithLabelValues("product_not_found").Inc()
	case errors.Is(err, domain.ErrInsufficientStock):
		metrics.OrdersPlaced.WithLabelValues("insufficient_stock").Inc()
	case errors.Is(err, domain.ErrPublishFailure):
		metrics.OrdersPlaced.WithLabelValues("publish_failure").Inc()
	case errors.Is(err, domain.ErrPersistenceFailure):
		metrics.OrdersPlaced.WithLabelValues("persistence_failure").Inc()
	default:
		metrics.OrdersPlaced.WithLabelValues("unavailable").Inc()
	}
}
