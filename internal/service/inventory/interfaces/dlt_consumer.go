// internal/service/inventory/interfaces/dlt_consumer.go
package interfaces

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/metrics"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/inventory/application"
)

// DltConsumer watches the dead-letter topic. Dead letters are terminal:
// the consumer records them for operators and always commits.
type DltConsumer struct {
	reader   MessageSource
	notifier application.OpsNotifier

	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewDltConsumer(reader MessageSource, notifier application.OpsNotifier) *DltConsumer {
	return &DltConsumer{reader: reader, notifier: notifier}
}

func (c *DltConsumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Msg("✅ DLT consumer started.")
		for {
			if c.stopped.Load() {
				return
			}
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || c.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("🛑 DLT consumer shutting down.")
					return
				}
				time.Sleep(1 * time.Second)
				continue
			}

			c.logDeadLetter(ctx, msg)

			// Dead letters are already "handled" by being recorded.
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit DLT offset")
			}
		}
	}()
	return nil
}

func (c *DltConsumer) Stop(ctx context.Context) {
	c.stopped.Store(true)
	c.reader.Close()
	c.wg.Wait()
	logger.Ctx(ctx).Info().Msg("✅ DLT consumer stopped.")
}

func (c *DltConsumer) logDeadLetter(ctx context.Context, msg kafka.Message) {
	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	metrics.DeadLetters.Inc()
	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", headers[mq.HeaderOriginalTopic]).
		Str("original_partition", headers[mq.HeaderOriginalPartition]).
		Str("original_offset", headers[mq.HeaderOriginalOffset]).
		Str("exception_message", headers[mq.HeaderExceptionMessage]).
		Str("attempts", headers[mq.HeaderAttempt]).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")

	if c.notifier != nil {
		c.notifier.Notify(application.OpsEvent{
			Kind:   "dead_letter",
			Detail: headers[mq.HeaderExceptionMessage],
			At:     time.Now().UTC(),
		})
	}
}
