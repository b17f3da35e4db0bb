// Package events publishes committed engagement changes to Kafka for
// downstream consumers such as notifications and analytics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"retouchly/internal/middleware"
	"retouchly/internal/observability"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Type names one kind of engagement change.
type Type string

const (
	Liked             Type = "activity.liked"
	Unliked           Type = "activity.unliked"
	VisibilityChanged Type = "activity.visibility_changed"
	Downloaded        Type = "activity.downloaded"
)

// Event is the payload written for every committed engagement change.
// Counters are the values after the change.
type Event struct {
	Type          Type      `json:"type"`
	ActivityID    uuid.UUID `json:"activity_id"`
	OwnerID       uint      `json:"owner_id"`
	ActorID       uint      `json:"actor_id,omitempty"`
	LikeCount     int64     `json:"like_count"`
	DownloadCount int64     `json:"download_count"`
	IsPublic      bool      `json:"is_public"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher delivers events. Implementations must not block the request
// path on broker availability.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }
func (discard) Close() error                         { return nil }

// Discard drops every event.
var Discard Publisher = discard{}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to one topic keyed by activity ID, so every
// change to an activity lands on the same partition in commit order.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher returns a publisher for brokers, a comma-separated list.
// The writer is asynchronous; delivery failures are logged and counted.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(splitBrokers(brokers)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 50 * time.Millisecond,
		Async:        true,
		Completion:   reportDelivery,
	}
	return &KafkaPublisher{writer: w, topic: topic}
}

func splitBrokers(raw string) []string {
	var out []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func reportDelivery(msgs []kafka.Message, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		middleware.Logger.Warn("engagement event delivery failed",
			slog.Int("messages", len(msgs)), slog.String("error", err.Error()))
	}
	observability.EventsDelivered.WithLabelValues(result).Add(float64(len(msgs)))
}

// Message encodes ev as a Kafka message.
func Message(ev Event) (kafka.Message, error) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	return kafka.Message{
		Key:     []byte(ev.ActivityID.String()),
		Value:   value,
		Time:    ev.OccurredAt,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(ev.Type)}},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
