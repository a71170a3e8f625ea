package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"shopcart/internal/service/order/domain"
)

const (
	TopicOrderConfirmed = "order-confirmed"
	TopicOrderCancelled = "order-cancelled"
)

// KafkaEventPublisher publishes order lifecycle events, keyed by order
// id so all events for one order land in the same partition.
type KafkaEventPublisher struct {
	writer *kafka.Writer
}

// NewKafkaEventPublisher builds a publisher over the given brokers.
// The topic is set per message, so one writer serves both events.
func NewKafkaEventPublisher(brokers []string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *KafkaEventPublisher) PublishConfirmed(ctx context.Context, event domain.OrderConfirmed) error {
	return p.publish(ctx, TopicOrderConfirmed, event.OrderID, event)
}

func (p *KafkaEventPublisher) PublishCancelled(ctx context.Context, event domain.OrderCancelled) error {
	return p.publish(ctx, TopicOrderCancelled, event.OrderID, event)
}

func (p *KafkaEventPublisher) publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	return errors.Wrapf(p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	}), "publishing to %s", topic)
}

func (p *KafkaEventPublisher) Close() error { return p.writer.Close() }
