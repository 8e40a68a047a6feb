// Package audit mirrors graduation events to Kafka. The store's
// graduation_events table is the source of truth; the mirror exists so
// downstream consumers can react to transitions without polling the db.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/AgentWarden/AgentWarden/internal/store"
)

// DefaultTopic is the graduation event stream.
const DefaultTopic = "warden.graduation"

// KafkaMirror publishes committed graduation events to a topic.
// Messages are keyed by agent id so per-agent ordering survives
// partitioning.
type KafkaMirror struct {
	writer *kafka.Writer
}

// NewKafkaMirror creates a mirror for the given comma-separated broker
// list and topic.
func NewKafkaMirror(brokers, topic string) *KafkaMirror {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaMirror{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(brokers, ",")...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish writes one event. The caller treats failures as best-effort.
func (m *KafkaMirror) Publish(ctx context.Context, ev store.GraduationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal graduation event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.AgentID),
		Value: payload,
		Time:  time.Now(),
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish graduation event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (m *KafkaMirror) Close() error {
	return m.writer.Close()
}
