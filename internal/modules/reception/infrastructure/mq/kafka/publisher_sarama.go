package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"LiveDock/internal/modules/reception/infrastructure/mq"

	"github.com/IBM/sarama"
)

const (
	HeaderProcessID = "process-id"
	HeaderEventID   = "event-id"

	defaultMaxRetries = 5
)

type PublisherConfig struct {
	Brokers    []string
	ClientID   string
	MaxRetries int
}

type processEventPublisher struct {
	producer sarama.SyncProducer
}

// NewSaramaPublisher 幂等写入，按流程 id 哈希分区
func NewSaramaPublisher(cfg PublisherConfig) (mq.Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers is empty")
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, producerConfig(cfg))
	if err != nil {
		return nil, err
	}
	return newPublisher(producer), nil
}

func producerConfig(cfg PublisherConfig) *sarama.Config {
	sc := sarama.NewConfig()
	sc.Version = sarama.V2_8_0_0
	if id := strings.TrimSpace(cfg.ClientID); id != "" {
		sc.ClientID = id
	}
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Retry.Max = defaultMaxRetries
	if cfg.MaxRetries > 0 {
		sc.Producer.Retry.Max = cfg.MaxRetries
	}
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Partitioner = sarama.NewHashPartitioner
	return sc
}

func newPublisher(producer sarama.SyncProducer) mq.Publisher {
	return &processEventPublisher{producer: producer}
}

func (p *processEventPublisher) Publish(ctx context.Context, msg mq.Message) (mq.PublishResult, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return mq.PublishResult{}, err
		}
	}
	if strings.TrimSpace(msg.Topic) == "" {
		return mq.PublishResult{}, errors.New("kafka topic is empty")
	}
	if msg.ProcessID <= 0 {
		return mq.PublishResult{}, errors.New("process id is required as partition key")
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic:   msg.Topic,
		Key:     sarama.StringEncoder(mq.PartitionKey(msg.ProcessID)),
		Value:   sarama.ByteEncoder(msg.Value),
		Headers: recordHeaders(msg),
	})
	if err != nil {
		return mq.PublishResult{}, fmt.Errorf("publish event %d of process %d: %w", msg.EventID, msg.ProcessID, err)
	}
	return mq.PublishResult{Partition: partition, Offset: offset}, nil
}

// recordHeaders 流程与事件 id 总是写入头部，调用方同名头部被忽略
func recordHeaders(msg mq.Message) []sarama.RecordHeader {
	headers := make([]sarama.RecordHeader, 0, len(msg.Headers)+2)
	headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderProcessID), Value: []byte(mq.PartitionKey(msg.ProcessID))})
	if msg.EventID > 0 {
		headers = append(headers, sarama.RecordHeader{Key: []byte(HeaderEventID), Value: []byte(strconv.FormatInt(msg.EventID, 10))})
	}
	for k, v := range msg.Headers {
		k = strings.TrimSpace(k)
		if k == "" || k == HeaderProcessID || k == HeaderEventID {
			continue
		}
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return headers
}

func (p *processEventPublisher) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
