package ingest

import (
	"context"

	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/logging"
	"github.com/wyfcoding/fixmonitor/messagequeue/kafka"

	kafkago "github.com/segmentio/kafka-go"
)

// KafkaSource 从 Kafka 主题消费原始 FIX 报文并送入流水线。
// 消息体即原始报文文本, 来源标记为 "kafka"。
type KafkaSource struct {
	consumer *kafka.Consumer
	service  *Service
	logger   *logging.Logger
	workers  int
}

// NewKafkaSource 创建消费端报文源。cfg.ConsumeTopic 为消费主题。
func NewKafkaSource(cfg config.KafkaConfig, service *Service, logger *logging.Logger) *KafkaSource {
	consumeCfg := cfg
	consumeCfg.Topic = cfg.ConsumeTopic

	workers := 2
	return &KafkaSource{
		consumer: kafka.NewConsumer(consumeCfg, logger),
		service:  service,
		logger:   logger,
		workers:  workers,
	}
}

// Start 启动消费循环, 阻塞直到 ctx 取消。
func (s *KafkaSource) Start(ctx context.Context) error {
	s.logger.Info("kafka message source starting", "workers", s.workers)
	s.consumer.Start(ctx, s.workers, s.handle)
	<-ctx.Done()
	return nil
}

// Stop 关闭底层消费者。
func (s *KafkaSource) Stop(ctx context.Context) error {
	return s.consumer.Close()
}

// handle 单条 Kafka 消息: 摄取失败返回错误以便不提交位点。
// 空消息体视为毒丸, 记录后吞掉。
func (s *KafkaSource) handle(ctx context.Context, msg kafkago.Message) error {
	raw := string(msg.Value)
	if raw == "" {
		s.logger.Warn("skipping empty kafka payload",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		return nil
	}

	if _, err := s.service.Ingest(ctx, raw, "kafka"); err != nil {
		s.logger.ErrorContext(ctx, "failed to ingest kafka message",
			"topic", msg.Topic, "offset", msg.Offset, "error", err)
		return err
	}
	return nil
}
