package kafka

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/fixmonitor/config"
	"github.com/wyfcoding/fixmonitor/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	mqProduced = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mq_produced_total", Help: "消息生产总数"},
		[]string{"topic", "status"},
	)
	mqConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "mq_consumed_total", Help: "消息消费总数"},
		[]string{"topic", "status"},
	)
	mqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_operation_duration_seconds",
			Help:    "MQ操作耗时",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic", "operation"},
	)
	mqLag = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_lag_seconds",
			Help:    "消息消费延迟",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"topic"},
	)
)

func init() {
	prometheus.MustRegister(mqProduced, mqConsumed, mqDuration, mqLag)
}

type Handler func(ctx context.Context, msg kafkago.Message) error

// Producer Kafka 消息生产者。
// writer 不绑定固定 topic, 每条消息单独指定, 以便同一个生产者服务多个主题。
type Producer struct {
	writer       *kafkago.Writer
	dlqWriter    *kafkago.Writer
	logger       *logging.Logger
	defaultTopic string
	dlqTopic     string
}

func NewProducer(cfg config.KafkaConfig, logger *logging.Logger) *Producer {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Balancer:     &kafkago.Hash{},
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		MaxAttempts:  maxAttempts,
		RequiredAcks: requiredAcks(cfg.RequiredAcks),
		Async:        cfg.Async,
	}

	p := &Producer{writer: w, logger: logger, defaultTopic: cfg.Topic}

	if cfg.DLQEnabled {
		p.dlqTopic = cfg.DLQTopic
		if p.dlqTopic == "" {
			p.dlqTopic = cfg.Topic + ".dlq"
		}
		p.dlqWriter = &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.Brokers...),
			Topic:        p.dlqTopic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireOne,
		}
	}

	return p
}

func requiredAcks(acks int) kafkago.RequiredAcks {
	switch acks {
	case 0:
		return kafkago.RequireNone
	case 1:
		return kafkago.RequireOne
	default:
		return kafkago.RequireAll
	}
}

// Publish 将消息发布到默认 topic。
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	return p.PublishToTopic(ctx, p.defaultTopic, key, value)
}

// PublishToTopic 将消息发布到指定 topic, 失败时落入死信队列。
func (p *Producer) PublishToTopic(ctx context.Context, topic string, key, value []byte) error {
	start := time.Now()
	tracer := otel.Tracer("kafka-producer")
	ctx, span := tracer.Start(ctx, "Kafka.Publish", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	headers := make([]kafkago.Header, 0)
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}

	msg := kafkago.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}

	err := p.writer.WriteMessages(ctx, msg)
	mqDuration.WithLabelValues(topic, "publish").Observe(time.Since(start).Seconds())

	if err != nil {
		mqProduced.WithLabelValues(topic, "failed").Inc()
		p.logger.ErrorContext(ctx, "failed to publish message", "error", err, "topic", topic)
		if p.dlqWriter != nil {
			dlqMsg := msg
			dlqMsg.Topic = ""
			if dlqErr := p.dlqWriter.WriteMessages(ctx, dlqMsg); dlqErr != nil {
				p.logger.ErrorContext(ctx, "failed to write to DLQ", "error", dlqErr, "topic", p.dlqTopic)
			}
		}
		return err
	}

	mqProduced.WithLabelValues(topic, "success").Inc()
	return nil
}

func (p *Producer) Close() error {
	var err error
	if p.dlqWriter != nil {
		if dlqErr := p.dlqWriter.Close(); dlqErr != nil {
			p.logger.Error("failed to close DLQ writer", "error", dlqErr)
			err = dlqErr
		}
	}
	if wErr := p.writer.Close(); wErr != nil {
		p.logger.Error("failed to close writer", "error", wErr)
		err = wErr
	}
	return err
}

// Consumer Kafka 消费者, 摄取侧从 consume_topic 拉取原始报文。
type Consumer struct {
	reader *kafkago.Reader
	logger *logging.Logger
}

func NewConsumer(cfg config.KafkaConfig, logger *logging.Logger) *Consumer {
	topic := cfg.ConsumeTopic
	if topic == "" {
		topic = cfg.Topic
	}
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          topic,
		MinBytes:       10e3,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		CommitInterval: 0,
	})
	return &Consumer{reader: r, logger: logger}
}

func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	tracer := otel.Tracer("kafka-consumer")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}

		carrier := propagation.MapCarrier{}
		for _, h := range m.Headers {
			carrier[h.Key] = string(h.Value)
		}
		extractedCtx := otel.GetTextMapPropagator().Extract(ctx, carrier)
		spanCtx, span := tracer.Start(extractedCtx, "Kafka.Consume", trace.WithSpanKind(trace.SpanKindConsumer))

		start := time.Now()
		handleErr := handler(spanCtx, m)

		mqDuration.WithLabelValues(m.Topic, "consume").Observe(time.Since(start).Seconds())
		mqLag.WithLabelValues(m.Topic).Observe(time.Since(m.Time).Seconds())

		if handleErr != nil {
			mqConsumed.WithLabelValues(m.Topic, "failed").Inc()
			c.logger.ErrorContext(spanCtx, "message handler failed", "error", handleErr, "topic", m.Topic, "offset", m.Offset)
			span.SetStatus(codes.Error, handleErr.Error())
			span.End()
			continue
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.ErrorContext(spanCtx, "failed to commit offset", "error", err)
		}

		mqConsumed.WithLabelValues(m.Topic, "success").Inc()
		span.End()
	}
}

func (c *Consumer) Start(ctx context.Context, workers int, handler Handler) {
	for range workers {
		go func() {
			if err := c.Consume(ctx, handler); err != nil && err != context.Canceled {
				c.logger.Error("consumer exit with error", "error", err)
			}
		}()
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
