package kafka

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiscaldesk/rateations/internal/config"
	"github.com/fiscaldesk/rateations/internal/infrastructure/monitoring/logging"
	apperrors "github.com/fiscaldesk/rateations/pkg/errors"
)

// fakeReader replays a fixed sequence of messages and then reports a closed
// reader.
type fakeReader struct {
	queue     []kafka.Message
	committed []kafka.Message
	fetchErr  error
	closed    bool
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if f.fetchErr != nil {
		return kafka.Message{}, f.fetchErr
	}
	if len(f.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := f.queue[0]
	f.queue = f.queue[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestConsumerRun(t *testing.T) {
	t.Run("dispatches and commits every message", func(t *testing.T) {
		reader := &fakeReader{queue: []kafka.Message{
			{Topic: TopicStateChanged, Offset: 1, Value: []byte(`{"plan_ids":[1]}`)},
			{Topic: TopicStateChanged, Offset: 2, Value: []byte(`{"plan_ids":[2]}`)},
		}}
		consumer := NewConsumerWithReader(reader, logging.NewNopLogger())

		var seen []int64
		err := consumer.Run(context.Background(), func(ctx context.Context, msg ConsumerMessage) error {
			seen = append(seen, msg.Offset)
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, []int64{1, 2}, seen)
		require.Len(t, reader.committed, 2)
		assert.Equal(t, int64(2), consumer.Metrics().MessagesHandled)
		assert.Zero(t, consumer.Metrics().MessagesSkipped)
	})

	t.Run("skips and commits a message that exhausts retries", func(t *testing.T) {
		reader := &fakeReader{queue: []kafka.Message{
			{Topic: TopicStateChanged, Offset: 7, Value: []byte(`broken`)},
		}}
		consumer := NewConsumerWithReader(reader, logging.NewNopLogger())
		consumer.retryDelay = time.Millisecond

		attempts := 0
		err := consumer.Run(context.Background(), func(ctx context.Context, msg ConsumerMessage) error {
			attempts++
			return assert.AnError
		})
		require.NoError(t, err)

		assert.Equal(t, handlerRetries, attempts)
		require.Len(t, reader.committed, 1, "poison message must still be committed")
		assert.Equal(t, int64(1), consumer.Metrics().MessagesSkipped)
		assert.Equal(t, int64(handlerRetries), consumer.Metrics().MessagesFailed)
	})

	t.Run("stops cleanly on context cancellation", func(t *testing.T) {
		reader := &fakeReader{fetchErr: context.Canceled}
		consumer := NewConsumerWithReader(reader, logging.NewNopLogger())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := consumer.Run(ctx, func(ctx context.Context, msg ConsumerMessage) error { return nil })
		assert.NoError(t, err)
	})

	t.Run("wraps transport failures", func(t *testing.T) {
		reader := &fakeReader{fetchErr: assert.AnError}
		consumer := NewConsumerWithReader(reader, logging.NewNopLogger())

		err := consumer.Run(context.Background(), func(ctx context.Context, msg ConsumerMessage) error { return nil })
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeEventBusError))
	})

	t.Run("refuses to run after close", func(t *testing.T) {
		reader := &fakeReader{}
		consumer := NewConsumerWithReader(reader, logging.NewNopLogger())
		require.NoError(t, consumer.Close())
		assert.True(t, reader.closed)

		err := consumer.Run(context.Background(), func(ctx context.Context, msg ConsumerMessage) error { return nil })
		assert.ErrorIs(t, err, ErrConsumerClosed)
	})
}

func configWithBrokers(brokers []string) config.KafkaConfig {
	return config.KafkaConfig{Brokers: brokers}
}

func TestNewConsumer_Validation(t *testing.T) {
	_, err := NewConsumer(configWithBrokers(nil), TopicStateChanged, "g", logging.NewNopLogger())
	assert.Error(t, err)

	_, err = NewConsumer(configWithBrokers([]string{"localhost:9092"}), "", "g", logging.NewNopLogger())
	assert.Error(t, err)

	_, err = NewConsumer(configWithBrokers([]string{"localhost:9092"}), TopicStateChanged, "", logging.NewNopLogger())
	assert.Error(t, err)
}
