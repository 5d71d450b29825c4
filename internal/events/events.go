// Package events publishes loan lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
)

// Event types.
const (
	LoanCreated     = "loan.created"
	PaymentRecorded = "payment.recorded"
	LoanPaidOff     = "loan.paid_off"
)

// Event is the envelope written to the topic. Key is the loan id so every
// event of one loan lands on the same partition in order.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(eventType, key string, payload any) Event {
	return Event{Type: eventType, Key: key, OccurredAt: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher writes events to "<prefix><type>" topics.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
	logger      *slog.Logger
}

// NewKafkaPublisher connects a synchronous producer, retrying while the
// brokers come up.
func NewKafkaPublisher(brokers []string, topicPrefix string, attempts int, logger *slog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Partitioner = sarama.NewHashPartitioner

	if attempts < 1 {
		attempts = 1
	}

	var (
		producer sarama.SyncProducer
		err      error
	)
	for i := 1; i <= attempts; i++ {
		producer, err = sarama.NewSyncProducer(brokers, cfg)
		if err == nil {
			logger.Info("kafka producer initialized", "brokers", brokers)
			return NewKafkaPublisherWithProducer(producer, topicPrefix, logger), nil
		}
		logger.Warn("waiting for kafka", "attempt", i, "of", attempts, "error", err)
		if i < attempts {
			time.Sleep(2 * time.Second)
		}
	}

	return nil, fmt.Errorf("start kafka producer: %w", err)
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topicPrefix string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topicPrefix: topicPrefix, logger: logger}
}

func (p *KafkaPublisher) Topic(eventType string) string {
	return p.topicPrefix + eventType
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.Topic(event.Type),
		Key:   sarama.StringEncoder(event.Key),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}

	p.logger.Debug("published event", "type", event.Type, "key", event.Key, "partition", partition, "offset", offset)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
