package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace/noop"

	"stockflow/internal/messages"
	"stockflow/internal/service/order/application"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

type stubProducts struct {
	products map[int64]*port.Product
	err      error
}

func (s *stubProducts) GetProduct(_ context.Context, id int64) (*port.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

type stubRepo struct {
	saveErr error
}

func (s *stubRepo) Save(context.Context, *domain.Order) error { return s.saveErr }
func (s *stubRepo) FindByID(context.Context, string) (*domain.Order, error) {
	return nil, errors.New("not found")
}
func (s *stubRepo) UpdateStatus(context.Context, string, domain.Status) error { return nil }
func (s *stubRepo) MarkLineSent(context.Context, string, int) error { return nil }
func (s *stubRepo) FindUnsentLines(context.Context, time.Time, int) ([]domain.PendingDebit, error) {
	return nil, nil
}
func (s *stubRepo) AllLinesSent(context.Context, string) (bool, error) { return true, nil }

type stubPublisher struct {
	err error
}

func (s *stubPublisher) Publish(context.Context, messages.StockDebitMessage) error { return s.err }

type denyAll struct{}

func (denyAll) Authorize(*http.Request) error { return errors.New("no credentials") }

func newTestHandler(products *stubProducts, repo *stubRepo, pub *stubPublisher, auth Authorizer) http.Handler {
	svc := application.NewOrderApplicationService(
		repo, products, pub,
		50*time.Millisecond,
		noop.NewTracerProvider().Tracer("test"),
	)
	mux := http.NewServeMux()
	NewOrderHandler(svc, auth).RegisterRoutes(mux)
	return mux
}

func catalog() *stubProducts {
	return &stubProducts{products: map[int64]*port.Product{
		1: {ID: 1, Name: "Arabica Coffee", PriceCents: 2550, Quantity: 10},
	}}
}

func postOrder(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const goodBody = `{"customerId":"cust-1","items":[{"productId":1,"quantity":2}]}`

func TestPlaceOrderEndpointStatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		products   *stubProducts
		publisher  *stubPublisher
		body       string
		wantStatus int
	}{
		{"confirmed", catalog(), &stubPublisher{}, goodBody, http.StatusCreated},
		{"invalid json", catalog(), &stubPublisher{}, `{"customerId":`, http.StatusBadRequest},
		{"missing items", catalog(), &stubPublisher{}, `{"customerId":"cust-1"}`, http.StatusBadRequest},
		{"unknown product", catalog(), &stubPublisher{},
			`{"customerId":"cust-1","items":[{"productId":99,"quantity":1}]}`, http.StatusNotFound},
		{"insufficient stock", catalog(), &stubPublisher{},
			`{"customerId":"cust-1","items":[{"productId":1,"quantity":11}]}`, http.StatusConflict},
		{"product store down",
			&stubProducts{err: errors.Wrap(domain.ErrUnavailable, "timeout")},
			&stubPublisher{}, goodBody, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(tc.products, &stubRepo{}, tc.publisher, AllowAll{})
			rec := postOrder(t, h, tc.body)
			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rec.Code, tc.wantStatus, rec.Body.String())
			}
		})
	}
}

func TestPlaceOrderConfirmedBody(t *testing.T) {
	h := newTestHandler(catalog(), &stubRepo{}, &stubPublisher{}, AllowAll{})
	rec := postOrder(t, h, goodBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp application.OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != domain.StatusConfirmed {
		t.Fatalf("body status = %s", resp.Status)
	}
	if resp.TotalCents != 2*2550 {
		t.Fatalf("body total = %d", resp.TotalCents)
	}
	if len(resp.Lines) != 1 || resp.Lines[0].ProductName != "Arabica Coffee" {
		t.Fatalf("body lines = %+v", resp.Lines)
	}
}

func TestPlaceOrderPublishFailureStillCreated(t *testing.T) {
	pub := &stubPublisher{err: errors.Wrap(domain.ErrUnavailable, "broker down")}
	h := newTestHandler(catalog(), &stubRepo{}, pub, AllowAll{})

	rec := postOrder(t, h, goodBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; a durable order must be reported as created", rec.Code)
	}
	var resp application.OrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != domain.StatusFailedPublish {
		t.Fatalf("body status = %s, want %s", resp.Status, domain.StatusFailedPublish)
	}
}

func TestPlaceOrderPersistenceOutage(t *testing.T) {
	h := newTestHandler(catalog(), &stubRepo{saveErr: errors.New("db gone")}, &stubPublisher{}, AllowAll{})
	rec := postOrder(t, h, goodBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPlaceOrderUnauthorized(t *testing.T) {
	h := newTestHandler(catalog(), &stubRepo{}, &stubPublisher{}, denyAll{})
	rec := postOrder(t, h, goodBody)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
