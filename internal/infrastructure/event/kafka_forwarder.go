package event

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/transportops/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// MessageWriter is the subset of *kafka.Writer the forwarder needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a synchronous writer for topic
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// KafkaForwarder publishes every domain event to a Kafka topic, keyed by
// aggregate ID so events of one document stay ordered within a partition.
type KafkaForwarder struct {
	writer     MessageWriter
	serializer *EventSerializer
	logger     *zap.Logger
}

// NewKafkaForwarder creates a forwarder on writer
func NewKafkaForwarder(writer MessageWriter, serializer *EventSerializer, logger *zap.Logger) *KafkaForwarder {
	return &KafkaForwarder{writer: writer, serializer: serializer, logger: logger}
}

// EventTypes subscribes the forwarder to every event
func (f *KafkaForwarder) EventTypes() []string {
	return nil
}

// Handle writes the event to Kafka. A write error fails the outbox entry so it is retried.
func (f *KafkaForwarder) Handle(ctx context.Context, ev shared.DomainEvent) error {
	payload, err := f.serializer.Serialize(ev)
	if err != nil {
		return fmt.Errorf("serialize %s: %w", ev.EventType(), err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.AggregateID().String()),
		Value: payload,
		Time:  ev.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType())},
			{Key: "event_id", Value: []byte(ev.EventID().String())},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType())},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", ev.EventType(), err)
	}

	f.logger.Debug("event forwarded to kafka",
		zap.String("event_type", ev.EventType()),
		zap.String("event_id", ev.EventID().String()),
	)
	return nil
}

// Close flushes and closes the writer
func (f *KafkaForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaForwarder)(nil)
