package events

import (
	"encoding/json"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// EventKind labels a streaming event on the per-session side channel.
type EventKind string

const (
	KindThinking         EventKind = "thinking"
	KindAction           EventKind = "action"
	KindSourceFound      EventKind = "source_found"
	KindQuestionComplete EventKind = "question_complete"
	KindError            EventKind = "error"
	KindDone             EventKind = "done"
)

// StreamSink is the best-effort side channel pipelines emit progress
// events through. Emit must never block and never fail the caller;
// the absence of a real sink is a legal no-op.
type StreamSink interface {
	Emit(kind EventKind, payload map[string]interface{})
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) Emit(EventKind, map[string]interface{}) {}

type streamEnvelope struct {
	Kind      EventKind              `json:"kind"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// WatermillSink publishes streaming events on an in-process pub/sub
// topic. The transport layer subscribes to deliver them to clients.
// Publish failures are logged and dropped.
type WatermillSink struct {
	publisher message.Publisher
	topic     string
	logger    *log.Logger
}

func NewWatermillSink(publisher message.Publisher, topic string, logger *log.Logger) *WatermillSink {
	return &WatermillSink{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

func (s *WatermillSink) Emit(kind EventKind, payload map[string]interface{}) {
	data, err := json.Marshal(streamEnvelope{
		Kind:      kind,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.logger.Printf("[WARN] Failed to marshal stream event %s: %v", kind, err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.logger.Printf("[WARN] Failed to publish stream event %s: %v", kind, err)
	}
}
