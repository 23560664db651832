package client

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"hospital-admin/internal/config"
	"hospital-admin/internal/util"
)

// AuditProducer mirrors audit events onto a Kafka topic so downstream
// security tooling can consume them. Publishing is best-effort; a broker
// outage never fails the auth operation that produced the event.
type AuditProducer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewAuditProducer builds a producer for the configured brokers.
func NewAuditProducer(cfg config.KafkaConfig, logger *zap.Logger) *AuditProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to write audit events to kafka",
					util.ErrorField(err),
					util.Int("message_count", len(messages)),
				)
			}
		},
	}

	util.Info("Kafka audit producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		util.String("topic", cfg.Topic),
	)

	return &AuditProducer{writer: writer, logger: logger}
}

// Publish enqueues one audit event keyed by user id.
func (p *AuditProducer) Publish(ctx context.Context, key string, value []byte) {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		p.logger.Warn("failed to enqueue audit event", util.ErrorField(err))
	}
}

// Close flushes and shuts down the writer.
func (p *AuditProducer) Close() error {
	return p.writer.Close()
}
