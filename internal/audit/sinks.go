package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"idverse/internal/platform/kafka/producer"
)

// DefaultTopic is the Kafka topic carrying lifecycle events.
const DefaultTopic = "idverse.audit.events"

// KafkaSink appends events to a Kafka topic, keyed by credential id so one
// credential's history stays ordered within a partition.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
}

func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := event.CredentialID
	if key == "" {
		key = event.ApplicationID
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: value,
		Headers: map[string]string{
			"action": string(event.Action),
		},
	})
}

// MemorySink collects events for assertions in tests.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByAction filters collected events by action.
func (s *MemorySink) ByAction(action Action) []Event {
	var out []Event
	for _, event := range s.Events() {
		if event.Action == action {
			out = append(out, event)
		}
	}
	return out
}

// NoopSink discards everything. Used when Kafka is not configured.
type NoopSink struct{}

func (NoopSink) Append(context.Context, Event) error { return nil }

var (
	_ Sink = (*KafkaSink)(nil)
	_ Sink = (*MemorySink)(nil)
	_ Sink = NoopSink{}
)
