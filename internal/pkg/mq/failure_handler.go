// internal/pkg/mq/failure_handler.go
package mq

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"stockflow/internal/pkg/logger"
)

// Headers attached to retried and dead-lettered messages. The original
// coordinates plus the failure cause travel with the message so an
// operator can trace a dead letter back to its source delivery.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionMessage  = "x-exception-message"
	HeaderAttempt           = "x-attempt"
)

// Producer is the narrow slice of kafka.Writer the handler needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// FailureHandler implements the bounded-retry policy for the consumer:
// a transiently failed message is re-published to its own topic with an
// incremented attempt counter; once the bound is reached it is routed to
// the dead-letter topic instead. Poison messages skip retry entirely via
// DeadLetter.
type FailureHandler struct {
	retryProducer Producer
	dltProducer   Producer
	maxAttempts   int
}

func NewFailureHandler(retryProducer, dltProducer Producer, maxAttempts int) *FailureHandler {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &FailureHandler{
		retryProducer: retryProducer,
		dltProducer:   dltProducer,
		maxAttempts:   maxAttempts,
	}
}

// Attempt reads the delivery attempt counter from message headers.
// A message that has never been retried reports attempt 0.
func Attempt(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key == HeaderAttempt {
			if n, err := strconv.Atoi(string(h.Value)); err == nil {
				return n
			}
		}
	}
	return 0
}

// Handle routes a failed message. A non-nil return means the message was
// neither re-published nor dead-lettered; the caller must not commit its
// offset so the broker redelivers it.
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) error {
	attempt := Attempt(msg.Headers) + 1
	if attempt >= h.maxAttempts {
		return h.DeadLetter(ctx, msg, cause)
	}

	retry := kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: withHeader(stripHeader(msg.Headers, HeaderAttempt), HeaderAttempt, strconv.Itoa(attempt)),
	}
	if err := h.retryProducer.WriteMessages(ctx, retry); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int("attempt", attempt).
			Msg("Failed to re-publish message for retry, falling back to DLT")
		return h.DeadLetter(ctx, msg, cause)
	}

	logger.Ctx(ctx).Warn().Err(cause).
		Int("attempt", attempt).
		Int("maxAttempts", h.maxAttempts).
		Msg("Message re-published for retry")
	return nil
}

// DeadLetter publishes the message to the dead-letter topic along with
// its original coordinates and the failure reason.
func (h *FailureHandler) DeadLetter(ctx context.Context, msg kafka.Message, cause error) error {
	reason := "unknown"
	if cause != nil {
		reason = cause.Error()
	}

	headers := append([]kafka.Header(nil), msg.Headers...)
	headers = withHeader(headers, HeaderOriginalTopic, msg.Topic)
	headers = withHeader(headers, HeaderOriginalPartition, strconv.Itoa(msg.Partition))
	headers = withHeader(headers, HeaderOriginalOffset, strconv.FormatInt(msg.Offset, 10))
	headers = withHeader(headers, HeaderExceptionMessage, reason)

	dead := kafka.Message{
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	}
	if err := h.dltProducer.WriteMessages(ctx, dead); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("🚨 CRITICAL: failed to publish dead letter")
		return err
	}

	logger.Ctx(ctx).Error().Err(cause).
		Str("topic", msg.Topic).
		Int64("offset", msg.Offset).
		Msg("Message routed to dead-letter topic")
	return nil
}

func stripHeader(headers []kafka.Header, key string) []kafka.Header {
	out := make([]kafka.Header, 0, len(headers))
	for _, h := range headers {
		if h.Key != key {
			out = append(out, h)
		}
	}
	return out
}

func withHeader(headers []kafka.Header, key, value string) []kafka.Header {
	return append(headers, kafka.Header{Key: key, Value: []byte(value)})
}
