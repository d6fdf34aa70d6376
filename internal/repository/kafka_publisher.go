package repository

import (
	"context"
	"fmt"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/domain/repository"
)

// EventWriter is the subset of the Kafka producer the publisher needs.
type EventWriter interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaPublisher implements Publisher for Kafka. Events are keyed by symbol so
// a symbol's prices stay ordered within one partition.
type KafkaPublisher struct {
	producer EventWriter
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer EventWriter, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev models.PriceEvent) error {
	if ev.Symbol == "" {
		return fmt.Errorf("publish: empty symbol")
	}
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
