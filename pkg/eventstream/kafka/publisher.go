// Package kafka publishes exchange events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/synaptideco/synaptide/pkg/eventstream"
)

// DefaultTopic is used when the config leaves the topic empty.
const DefaultTopic = "synaptide.exchanges"

// Config holds connection settings for the Kafka publisher.
type Config struct {
	// Brokers is the list of bootstrap broker addresses.
	Brokers []string

	// Topic to publish exchange events to. Defaults to DefaultTopic.
	Topic string
}

// Publisher writes exchange events to Kafka, keyed by user so all events
// for one user land on the same partition in order.
type Publisher struct {
	writer *segmentio.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka-backed eventstream publisher.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	writer := &segmentio.Writer{
		Addr:     segmentio.TCP(cfg.Brokers...),
		Topic:    topic,
		Balancer: &segmentio.Hash{},
	}

	return &Publisher{
		writer: writer,
		logger: logger,
	}, nil
}

// PublishExchange serializes the event and writes it to the topic.
func (p *Publisher) PublishExchange(ctx context.Context, event *eventstream.ExchangePersistedEvent) error {
	if event == nil {
		return eventstream.ErrNilExchangeEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling exchange event: %w", err)
	}

	msg := segmentio.Message{
		Key:   []byte(event.RequestMeta.UserID),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing exchange event: %w", err)
	}

	p.logger.Debug("published exchange event",
		zap.String("event_id", event.EventID),
		zap.String("user_id", event.RequestMeta.UserID),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
