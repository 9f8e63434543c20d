// internal/service/inventory/interfaces/debit_consumer.go
package interfaces

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/semaphore"

	"stockflow/internal/messages"
	"stockflow/internal/pkg/logger"
	"stockflow/internal/pkg/mq"
	"stockflow/internal/service/inventory/application"
)

// MessageSource is the slice of kafka.Reader the consumer needs; a fake
// implements it in tests.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DebitConsumer drains the stock-debit topic independently of any saga's
// lifetime. Deliveries are handled by a bounded worker pool: the
// semaphore blocks the fetch loop when all workers are busy, which is
// the backpressure against a fast publisher. Offsets are committed only
// after a message is settled, dead-lettered, or handed to retry.
type DebitConsumer struct {
	reader   MessageSource
	applier  *application.DebitApplier
	failures *mq.FailureHandler

	workers      *semaphore.Weighted
	retryBackoff time.Duration

	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewDebitConsumer(
	reader MessageSource,
	applier *application.DebitApplier,
	failures *mq.FailureHandler,
	workerCount int,
	retryBackoff time.Duration,
) *DebitConsumer {
	if workerCount < 1 {
		workerCount = 1
	}
	return &DebitConsumer{
		reader:       reader,
		applier:      applier,
		failures:     failures,
		workers:      semaphore.NewWeighted(int64(workerCount)),
		retryBackoff: retryBackoff,
	}
}

// Start launches the fetch loop. It returns immediately; Stop waits for
// in-flight work.
func (c *DebitConsumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Info().Msg("✅ Stock-debit consumer started.")
		for {
			if c.stopped.Load() {
				return
			}
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || c.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("🛑 Stock-debit consumer shutting down.")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("Could not read message. Retrying...")
				time.Sleep(1 * time.Second)
				continue
			}

			if err := c.workers.Acquire(ctx, 1); err != nil {
				// Context gone; the uncommitted message is redelivered.
				return
			}
			c.wg.Add(1)
			go c.handle(ctx, msg)
		}
	}()
	return nil
}

// Stop drains the consumer: no new fetches, wait for workers.
func (c *DebitConsumer) Stop(ctx context.Context) {
	c.stopped.Store(true)
	c.reader.Close()
	c.wg.Wait()
	logger.Ctx(ctx).Info().Msg("✅ Stock-debit consumer stopped.")
}

func (c *DebitConsumer) handle(parentCtx context.Context, msg kafka.Message) {
	defer c.wg.Done()
	defer c.workers.Release(1)

	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)

	// Retried deliveries wait out a backoff proportional to their
	// attempt count before touching the store again.
	if attempt := mq.Attempt(msg.Headers); attempt > 0 {
		select {
		case <-time.After(time.Duration(attempt) * c.retryBackoff):
		case <-parentCtx.Done():
			return // not committed; broker redelivers
		}
	}

	debit, err := messages.DecodeStockDebit(msg.Value)
	if err != nil {
		// Poison: permanently malformed, requeueing can never help.
		if errors.Is(err, messages.ErrMalformed) {
			if dlErr := c.failures.DeadLetter(ctx, msg, err); dlErr != nil {
				return // leave uncommitted rather than lose the payload
			}
			c.commit(parentCtx, msg)
			return
		}
		logger.Ctx(ctx).Error().Err(err).Msg("Unexpected decode failure")
		c.commit(parentCtx, msg)
		return
	}

	if _, err := c.applier.Apply(ctx, debit); err != nil {
		// Transient failure: bounded retry, then dead-letter. Only if
		// even that fails do we skip the commit and let the broker
		// redeliver.
		if hErr := c.failures.Handle(ctx, msg, err); hErr != nil {
			return
		}
	}

	// Settled (applied, duplicate, shortfall) or handed off: the
	// acknowledgment happens strictly after the durable outcome.
	c.commit(parentCtx, msg)
}

func (c *DebitConsumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit message offset")
	}
}
