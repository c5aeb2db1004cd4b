package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Message headers set on every published event
const (
	HeaderEventType     = "x-event-type"
	HeaderEventID       = "x-event-id"
	HeaderAggregateType = "x-aggregate-type"
	HeaderEventVersion  = "x-event-version"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes domain events to a Kafka topic. Messages are keyed
// by aggregate id so events of one order stay in one partition, in order.
type KafkaPublisher struct {
	writer     messageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaPublisher creates a publisher for cfg.Topic on cfg.Brokers
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
		Transport:    &kafka.Transport{ClientID: cfg.ClientID},
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{
		writer:     w,
		serializer: NewPurchasingEventSerializer(),
		logger:     logger,
	}
}

// Publish writes events as one batch
func (p *KafkaPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := p.toMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write %d event(s) to kafka: %w", len(msgs), err)
	}
	p.logger.Debug("events published to kafka", zap.Int("count", len(msgs)))
	return nil
}

// Close flushes pending writes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) toMessage(event shared.DomainEvent) (kafka.Message, error) {
	value, err := p.serializer.Serialize(event)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(event.AggregateID().String()),
		Value: value,
		Time:  event.OccurredAt(),
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(event.EventType())},
			{Key: HeaderEventID, Value: []byte(event.EventID().String())},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType())},
			{Key: HeaderEventVersion, Value: []byte("1")},
		},
	}, nil
}

var _ shared.EventPublisher = (*KafkaPublisher)(nil)
