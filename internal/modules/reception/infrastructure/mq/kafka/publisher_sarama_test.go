package kafka

import (
	"context"
	"errors"
	"testing"

	"LiveDock/internal/modules/reception/infrastructure/mq"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headerMap(headers []sarama.RecordHeader) map[string]string {
	m := make(map[string]string, len(headers))
	for _, h := range headers {
		m[string(h.Key)] = string(h.Value)
	}
	return m
}

func TestSaramaPublisher_KeysByProcess(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	var sent *sarama.ProducerMessage
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})
	pub := newPublisher(sp)

	_, err := pub.Publish(context.Background(), mq.Message{
		Topic:     "livedock.process-events",
		ProcessID: 42,
		EventID:   7,
		Value:     []byte(`{"ok":true}`),
		Headers:   map[string]string{"event": "E", " ": "skipped", HeaderProcessID: "99"},
	})
	require.NoError(t, err)
	require.NotNil(t, sent)

	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "42", string(key))
	value, err := sent.Value.Encode()
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(value))
	assert.Equal(t, map[string]string{
		HeaderProcessID: "42",
		HeaderEventID:   "7",
		"event":         "E",
	}, headerMap(sent.Headers))
	require.NoError(t, pub.Close())
}

func TestSaramaPublisher_PublishFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	boom := errors.New("broker down")
	sp.ExpectSendMessageAndFail(boom)
	pub := newPublisher(sp)

	_, err := pub.Publish(context.Background(), mq.Message{Topic: "t", ProcessID: 3, EventID: 11, Value: []byte("x")})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "event 11 of process 3")
	require.NoError(t, pub.Close())
}

func TestSaramaPublisher_RejectsBadInput(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	pub := newPublisher(sp)

	_, err := pub.Publish(context.Background(), mq.Message{Topic: " ", ProcessID: 1})
	assert.Error(t, err)

	_, err = pub.Publish(context.Background(), mq.Message{Topic: "t"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = pub.Publish(ctx, mq.Message{Topic: "t", ProcessID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, pub.Close())
}

func TestProducerConfig(t *testing.T) {
	sc := producerConfig(PublisherConfig{ClientID: " livedock "})
	assert.Equal(t, "livedock", sc.ClientID)
	assert.True(t, sc.Producer.Idempotent)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, defaultMaxRetries, sc.Producer.Retry.Max)
	assert.Equal(t, 1, sc.Net.MaxOpenRequests)
	assert.NotNil(t, sc.Producer.Partitioner)

	sc = producerConfig(PublisherConfig{MaxRetries: 8})
	assert.Equal(t, 8, sc.Producer.Retry.Max)
	assert.Equal(t, "sarama", sc.ClientID)
}

func TestNewSaramaPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewSaramaPublisher(PublisherConfig{})
	assert.Error(t, err)
	assert.Error(t, EnsureTopic(TopicAdminConfig{}, "t", 1, 1))
	assert.Error(t, EnsureTopic(TopicAdminConfig{Brokers: []string{"localhost:9092"}}, " ", 1, 1))
}
