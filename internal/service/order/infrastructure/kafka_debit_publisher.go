// internal/service/order/infrastructure/kafka_debit_publisher.go
package infrastructure

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"stockflow/internal/messages"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/order/domain"
)

// KafkaDebitPublisher implements port.DebitPublisher over a kafka.Writer
// configured with RequiredAcks=all, so Publish returns success only after
// the broker has durably stored the message. It performs no retries of
// its own; escalation belongs to the saga and the resend sweep.
type KafkaDebitPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

func NewKafkaDebitPublisher(writer *kafka.Writer, timeout time.Duration) *KafkaDebitPublisher {
	return &KafkaDebitPublisher{writer: writer, timeout: timeout}
}

// Publish encodes the message canonically and writes it keyed by product
// id, which keeps all debits of one product on one partition.
func (p *KafkaDebitPublisher) Publish(ctx context.Context, msg messages.StockDebitMessage) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	key := []byte(strconv.FormatInt(msg.ProductID, 10))
	if err := mq.ProduceMessage(ctx, p.writer, key, payload); err != nil {
		return errors.Wrapf(domain.ErrUnavailable, "broker write: %v", err)
	}
	return nil
}
