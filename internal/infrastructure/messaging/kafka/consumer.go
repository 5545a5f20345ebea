package kafka

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/fiscaldesk/rateations/internal/config"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	apperrors "github.com/fiscaldesk/rateations/pkg/errors"
)

// ErrConsumerClosed is returned when Run is called on a closed consumer.
var ErrConsumerClosed = errors.New("kafka: consumer is closed")

const (
	handlerRetries = 3
	retryBaseDelay = time.Second
)

// ConsumerMessage is the transport-neutral shape handed to message handlers.
type ConsumerMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Time      time.Time
}

// MessageHandler processes one consumed message.  A nil return commits the
// offset; an error triggers the retry policy.
type MessageHandler func(ctx context.Context, msg ConsumerMessage) error

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerMetrics tracks consumption counts.
type ConsumerMetrics struct {
	MessagesHandled int64
	MessagesFailed  int64
	MessagesSkipped int64
}

// Consumer reads a topic within a consumer group and dispatches each message
// to a handler, committing offsets only after the handler succeeds.
type Consumer struct {
	reader     ReaderInterface
	logger     logging.Logger
	retryDelay time.Duration
	closed     atomic.Bool
	handled    atomic.Int64
	failed     atomic.Int64
	skipped    atomic.Int64
}

// NewConsumer builds a group consumer for the given topic.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string, log logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "kafka consumer requires at least one broker")
	}
	if topic == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "kafka consumer requires a topic")
	}
	if groupID == "" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "kafka consumer requires a group id")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       maxMessageBytes,
		CommitInterval: 0, // explicit commits only
	})
	return &Consumer{reader: reader, logger: log.Named("kafka.consumer"), retryDelay: retryBaseDelay}, nil
}

// NewConsumerWithReader builds a consumer around an existing reader.
// Intended for tests.
func NewConsumerWithReader(r ReaderInterface, log logging.Logger) *Consumer {
	return &Consumer{reader: r, logger: log.Named("kafka.consumer"), retryDelay: retryBaseDelay}
}

// Run fetches and dispatches messages until ctx is cancelled or the consumer
// is closed.  A handler failure is retried with exponential backoff; a message
// that exhausts its retries is committed and skipped so one poison message
// cannot stall the partition.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	if c.closed.Load() {
		return ErrConsumerClosed
	}
	for {
		raw, err := c.reader.FetchMessage(ctx)
		if err != nil {
			// A closed reader surfaces as io.EOF.
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return apperrors.Wrap(err, apperrors.ErrCodeEventBusError, "fetch failed")
		}

		msg := ConsumerMessage{
			Topic:     raw.Topic,
			Partition: raw.Partition,
			Offset:    raw.Offset,
			Key:       raw.Key,
			Value:     raw.Value,
			Time:      raw.Time,
		}
		if err := c.handleWithRetry(ctx, handler, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.skipped.Add(1)
			c.logger.Error("message skipped after retries",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err),
			)
		} else {
			c.handled.Add(1)
		}

		if err := c.reader.CommitMessages(ctx, raw); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperrors.Wrap(err, apperrors.ErrCodeEventBusError, "commit failed")
		}
	}
}

func (c *Consumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg ConsumerMessage) error {
	var err error
	for attempt := 0; attempt < handlerRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay << (attempt - 1)):
			}
		}
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		c.failed.Add(1)
	}
	return err
}

// Metrics returns cumulative consumption counts.
func (c *Consumer) Metrics() ConsumerMetrics {
	return ConsumerMetrics{
		MessagesHandled: c.handled.Load(),
		MessagesFailed:  c.failed.Load(),
		MessagesSkipped: c.skipped.Load(),
	}
}

// Close stops the consumer and releases the underlying reader.
func (c *Consumer) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.reader.Close()
}
