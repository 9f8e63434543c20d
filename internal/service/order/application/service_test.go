package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace/noop"

	"stockflow/internal/messages"
	"stockflow/internal/service/order/domain"
	"stockflow/internal/service/order/domain/port"
)

type fakeProductStore struct {
	products map[int64]*port.Product
	err      error
	calls    int
}

func (f *fakeProductStore) GetProduct(_ context.Context, productID int64) (*port.Product, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return p, nil
}

type fakeOrderRepo struct {
	mu            sync.Mutex
	saved         []*domain.Order
	statusUpdates map[string]domain.Status
	sentLines     map[string][]int
	saveErr       error
	pending       []domain.PendingDebit
	allSent       bool
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		statusUpdates: map[string]domain.Status{},
		sentLines:     map[string][]int{},
	}
}

func (f *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, order)
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.saved {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, errors.New("not found")
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, id string, status domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusUpdates[id] = status
	return nil
}

func (f *fakeOrderRepo) MarkLineSent(_ context.Context, orderID string, sequence int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentLines[orderID] = append(f.sentLines[orderID], sequence)
	return nil
}

func (f *fakeOrderRepo) FindUnsentLines(_ context.Context, _ time.Time, _ int) ([]domain.PendingDebit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending, nil
}

func (f *fakeOrderRepo) AllLinesSent(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.allSent, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	published []messages.StockDebitMessage
	failFrom  int // fail every publish once this many have succeeded; -1 never
}

func (f *fakePublisher) Publish(_ context.Context, msg messages.StockDebitMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFrom >= 0 && len(f.published) >= f.failFrom {
		return errors.Wrap(domain.ErrUnavailable, "broker down")
	}
	f.published = append(f.published, msg)
	return nil
}

func newService(store *fakeProductStore, repo *fakeOrderRepo, pub *fakePublisher) *OrderApplicationService {
	return NewOrderApplicationService(
		repo, store, pub,
		50*time.Millisecond,
		noop.NewTracerProvider().Tracer("test"),
	)
}

func twoProductCatalog() map[int64]*port.Product {
	return map[int64]*port.Product{
		1: {ID: 1, Name: "Arabica Coffee", PriceCents: 2550, Quantity: 10},
		2: {ID: 2, Name: "Robusta Coffee", PriceCents: 1890, Quantity: 5},
	}
}

func TestPlaceOrderConfirmed(t *testing.T) {
	store := &fakeProductStore{products: twoProductCatalog()}
	repo := newFakeOrderRepo()
	pub := &fakePublisher{failFrom: -1}
	svc := newService(store, repo, pub)

	order, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		CustomerID: "cust-1",
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s", order.Status)
	}
	if want := int64(2*2550 + 1890); order.TotalCents != want {
		t.Fatalf("total = %d, want %d", order.TotalCents, want)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("saved %d orders, want 1", len(repo.saved))
	}
	if len(pub.published) != 2 {
		t.Fatalf("published %d debits, want 2", len(pub.published))
	}
	for i, msg := range pub.published {
		if msg.OrderID != order.ID || msg.LineSequence != i {
			t.Fatalf("debit %d identity wrong: %+v", i, msg)
		}
	}
	if got := repo.sentLines[order.ID]; len(got) != 2 {
		t.Fatalf("marked sent %v, want both lines", got)
	}
}

func TestPlaceOrderRejectionsWriteNothing(t *testing.T) {
	cases := []struct {
		name    string
		items   []ItemRequest
		wantErr error
	}{
		{"insufficient stock", []ItemRequest{{ProductID: 2, Quantity: 6}}, domain.ErrInsufficientStock},
		{"unknown product", []ItemRequest{{ProductID: 99, Quantity: 1}}, domain.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeProductStore{products: twoProductCatalog()}
			repo := newFakeOrderRepo()
			pub := &fakePublisher{failFrom: -1}
			svc := newService(store, repo, pub)

			order, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
				CustomerID: "cust-1",
				Items:      tc.items,
			})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if order != nil {
				t.Fatal("rejected order must not be returned")
			}
			if len(repo.saved) != 0 {
				t.Fatal("rejected order must not be persisted")
			}
			if len(pub.published) != 0 {
				t.Fatal("rejected order must not publish debits")
			}
		})
	}
}

func TestPlaceOrderStoreOutageIsUnavailable(t *testing.T) {
	store := &fakeProductStore{err: errors.Wrap(domain.ErrUnavailable, "lookup timed out")}
	repo := newFakeOrderRepo()
	pub := &fakePublisher{failFrom: -1}
	svc := newService(store, repo, pub)

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: 1, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrProductNotFound) {
		t.Fatal("an outage must never turn into a stock verdict")
	}
	if len(repo.saved) != 0 || len(pub.published) != 0 {
		t.Fatal("nothing may be written during an outage")
	}
}

func TestPlaceOrderPublishFailureKeepsOrder(t *testing.T) {
	store := &fakeProductStore{products: twoProductCatalog()}
	repo := newFakeOrderRepo()
	pub := &fakePublisher{failFrom: 1} // first line goes out, second fails
	svc := newService(store, repo, pub)

	order, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		CustomerID: "cust-1",
		Items: []ItemRequest{
			{ProductID: 1, Quantity: 1},
			{ProductID: 2, Quantity: 1},
		},
	})
	if !errors.Is(err, domain.ErrPublishFailure) {
		t.Fatalf("err = %v, want ErrPublishFailure", err)
	}
	if order == nil {
		t.Fatal("the durable order must be returned alongside the error")
	}
	if len(repo.saved) != 1 {
		t.Fatal("order must stay persisted despite the publish failure")
	}
	if got := repo.statusUpdates[order.ID]; got != domain.StatusFailedPublish {
		t.Fatalf("persisted status = %s, want %s", got, domain.StatusFailedPublish)
	}
	if got := repo.sentLines[order.ID]; len(got) != 1 || got[0] != 0 {
		t.Fatalf("sent lines = %v, want only sequence 0", got)
	}
}

// Two orders placed before any debit settles are both validated against
// the same authoritative quantity; the read-then-eventual-apply window is
// part of the contract, not a bug.
func TestPlaceOrderValidatesAgainstPreDebitQuantity(t *testing.T) {
	store := &fakeProductStore{products: map[int64]*port.Product{
		1: {ID: 1, Name: "Arabica Coffee", PriceCents: 2550, Quantity: 10},
	}}
	repo := newFakeOrderRepo()
	pub := &fakePublisher{failFrom: -1}
	svc := newService(store, repo, pub)

	first, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		CustomerID: "cust-1",
		Items:      []ItemRequest{{ProductID: 1, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("first order: %v", err)
	}
	if first.Status != domain.StatusConfirmed {
		t.Fatalf("first order status = %s", first.Status)
	}

	// The consumer has not applied the first debit; the store still
	// reports 10, so 8 units must pass validation.
	second, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		CustomerID: "cust-2",
		Items:      []ItemRequest{{ProductID: 1, Quantity: 8}},
	})
	if err != nil || second.Status != domain.StatusConfirmed {
		t.Fatalf("second order: err=%v", err)
	}
	if len(repo.saved) != 2 || len(pub.published) != 2 {
		t.Fatalf("saved=%d published=%d, want 2/2", len(repo.saved), len(pub.published))
	}
}

func TestPlaceOrderInvalidRequest(t *testing.T) {
	store := &fakeProductStore{products: twoProductCatalog()}
	repo := newFakeOrderRepo()
	pub := &fakePublisher{failFrom: -1}
	svc := newService(store, repo, pub)

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{CustomerID: "cust-1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if store.calls != 0 {
		t.Fatal("shape validation must not hit the product store")
	}
}
