package events

import "time"

// Event defines the contract for audit events published to the bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RAG_RUN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a generic Event implementation used by the pipeline
// audit publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Audit event types emitted at pipeline terminals.
const (
	TypeRAGRunCompleted        = "RAG_RUN_COMPLETED"
	TypeRAGRunFailed           = "RAG_RUN_FAILED"
	TypeGenerationRunCompleted = "GENERATION_RUN_COMPLETED"
	TypeGenerationRunFailed    = "GENERATION_RUN_FAILED"
)

// NewPipelineEvent builds an audit event for a terminal pipeline state.
func NewPipelineEvent(eventType string, sessionId, userId, tenantId string, extra map[string]interface{}) Event {
	data := map[string]interface{}{
		"session_id": sessionId,
		"user_id":    userId,
		"tenant_id":  tenantId,
	}
	for k, v := range extra {
		data[k] = v
	}
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}
