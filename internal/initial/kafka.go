package initial

import (
	"fmt"

	"LiveDock/internal/config"
	"LiveDock/internal/modules/reception/infrastructure/mq"
	"LiveDock/internal/modules/reception/infrastructure/mq/kafka"
	"LiveDock/pkg/zlog"
)

// InitKafka 未配置 broker 或连接失败时返回 nil，流程事件不再外发
func InitKafka(conf *config.Config) mq.Publisher {
	kc := conf.KafkaConfig
	if len(kc.Brokers) == 0 {
		zlog.Info("Kafka 未配置，跳过初始化")
		return nil
	}

	err := kafka.EnsureTopic(kafka.TopicAdminConfig{
		Brokers:  kc.Brokers,
		ClientID: kc.ClientID,
	}, kc.ProcessEventsTopic, kc.Partitions, kc.Replication)
	if err != nil {
		zlog.Warn(fmt.Sprintf("Kafka topic 检查失败: %v", err))
	}

	pub, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{
		Brokers:  kc.Brokers,
		ClientID: kc.ClientID,
	})
	if err != nil {
		zlog.Error(fmt.Sprintf("Kafka 连接失败: %v", err))
		return nil
	}
	zlog.Info(fmt.Sprintf("Kafka 连接成功, topic: %s", kc.ProcessEventsTopic))
	return pub
}
