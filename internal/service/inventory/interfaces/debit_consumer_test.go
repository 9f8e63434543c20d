package interfaces

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace/noop"

	"stockflow/internal/messages"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/inventory/application"
	"stockflow/internal/service/inventory/domain"
)

type stubStore struct {
	mu      sync.Mutex
	outcome domain.Outcome
	err     error
	applied []domain.AppliedDebit
}

func (s *stubStore) GetProduct(context.Context, int64) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}

func (s *stubStore) ApplyDebit(_ context.Context, debit domain.AppliedDebit) (domain.Outcome, *domain.Shortfall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.OutcomeNone, nil, s.err
	}
	s.applied = append(s.applied, debit)
	return s.outcome, nil, nil
}

type fakeSource struct {
	msgs chan kafka.Message

	mu      sync.Mutex
	commits []kafka.Message

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeSource(msgs ...kafka.Message) *fakeSource {
	s := &fakeSource{
		msgs:   make(chan kafka.Message, len(msgs)),
		closed: make(chan struct{}),
	}
	for _, m := range msgs {
		s.msgs <- m
	}
	return s
}

func (s *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-s.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case <-s.closed:
		return kafka.Message{}, io.EOF
	}
}

func (s *fakeSource) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, msgs...)
	return nil
}

func (s *fakeSource) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSource) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commits)
}

type captureProducer struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (p *captureProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func (p *captureProducer) all() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.msgs...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func encodedDebit(t *testing.T) []byte {
	t.Helper()
	payload, err := messages.StockDebitMessage{
		ProductID:    1,
		Quantity:     2,
		OrderID:      "ord-1",
		LineSequence: 0,
		OccurredAt:   time.Now().UTC(),
	}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return payload
}

func runConsumer(t *testing.T, store *stubStore, source *fakeSource) (retry, dlt *captureProducer) {
	t.Helper()
	retry = &captureProducer{}
	dlt = &captureProducer{}
	applier := application.NewDebitApplier(store, nil, nil, nil, time.Hour,
		noop.NewTracerProvider().Tracer("test"))
	consumer := NewDebitConsumer(source, applier, mq.NewFailureHandler(retry, dlt, 3), 2, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		consumer.Stop(context.Background())
		cancel()
	})
	return retry, dlt
}

func TestConsumerCommitsAfterSettlement(t *testing.T) {
	store := &stubStore{outcome: domain.OutcomeApplied}
	source := newFakeSource(kafka.Message{Topic: "stock-debit-topic", Value: encodedDebit(t)})
	retry, dlt := runConsumer(t, store, source)

	waitFor(t, "commit", func() bool { return source.commitCount() == 1 })

	store.mu.Lock()
	applied := len(store.applied)
	store.mu.Unlock()
	if applied != 1 {
		t.Fatalf("applied %d debits, want 1", applied)
	}
	if len(retry.all()) != 0 || len(dlt.all()) != 0 {
		t.Fatal("settled message must not be republished anywhere")
	}
}

func TestConsumerDeadLettersPoisonAndCommits(t *testing.T) {
	store := &stubStore{outcome: domain.OutcomeApplied}
	source := newFakeSource(kafka.Message{Topic: "stock-debit-topic", Value: []byte(`{"quantity":0}`)})
	retry, dlt := runConsumer(t, store, source)

	waitFor(t, "dead letter", func() bool { return len(dlt.all()) == 1 })
	waitFor(t, "commit", func() bool { return source.commitCount() == 1 })

	store.mu.Lock()
	applied := len(store.applied)
	store.mu.Unlock()
	if applied != 0 {
		t.Fatal("poison must never reach the store")
	}
	if len(retry.all()) != 0 {
		t.Fatal("poison is not retried")
	}
	headers := map[string]string{}
	for _, h := range dlt.all()[0].Headers {
		headers[h.Key] = string(h.Value)
	}
	if headers["x-original-topic"] != "stock-debit-topic" {
		t.Fatalf("dead letter headers = %v", headers)
	}
}

func TestConsumerRetriesTransientFailure(t *testing.T) {
	store := &stubStore{err: errors.Wrap(domain.ErrUnavailable, "db gone")}
	source := newFakeSource(kafka.Message{Topic: "stock-debit-topic", Value: encodedDebit(t)})
	retry, dlt := runConsumer(t, store, source)

	waitFor(t, "retry publish", func() bool { return len(retry.all()) == 1 })
	waitFor(t, "commit", func() bool { return source.commitCount() == 1 })

	if got := mq.Attempt(retry.all()[0].Headers); got != 1 {
		t.Fatalf("republished attempt = %d, want 1", got)
	}
	if len(dlt.all()) != 0 {
		t.Fatal("first transient failure must not dead-letter")
	}
}

func TestConsumerHonorsRetryBackoffHeader(t *testing.T) {
	store := &stubStore{outcome: domain.OutcomeApplied}
	source := newFakeSource(kafka.Message{
		Topic:   "stock-debit-topic",
		Value:   encodedDebit(t),
		Headers: []kafka.Header{{Key: "x-attempt", Value: []byte("2")}},
	})
	_, _ = runConsumer(t, store, source)

	waitFor(t, "commit after backoff", func() bool { return source.commitCount() == 1 })

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.applied) != 1 {
		t.Fatal("retried delivery must still be applied")
	}
}
