// Package events publishes activity log entries to Kafka so external
// consumers (dashboards, archival) can follow the local without
// polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"campushub/pkg/model"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"
)

// Publisher emits one event per activity log entry. Implementations
// must be safe for concurrent use.
type Publisher interface {
	PublishActivity(ctx context.Context, entry model.ActivityEntry) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
	source string
	mu     sync.RWMutex
	closed bool
}

// NewKafkaPublisher builds a publisher over the given brokers. Keys
// are the activity type, so per-type ordering is preserved by the
// hash balancer.
func NewKafkaPublisher(brokers []string, topic, source string) (Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
	}

	return &kafkaPublisher{writer: writer, source: source}, nil
}

func (p *kafkaPublisher) PublishActivity(ctx context.Context, entry model.ActivityEntry) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode activity entry: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(entry.Type),
		Value: value,
		Time:  entry.Timestamp,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(uuid.New().String())},
			{Key: HeaderEventType, Value: []byte(entry.Type)},
			{Key: HeaderSource, Value: []byte(p.source)},
			{Key: HeaderTimestamp, Value: []byte(entry.Timestamp.Format(time.RFC3339))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish activity event: %w", err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

type noopPublisher struct{}

// NewNoopPublisher is used when no brokers are configured; the service
// runs without external event delivery.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishActivity(context.Context, model.ActivityEntry) error { return nil }
func (noopPublisher) Close() error                                              { return nil }
