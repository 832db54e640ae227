package telemetry

import (
	"context"
	"log"
	"time"
)

// Publisher is the transport audit envelopes go out on.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter writes structured audit events for message and room
// mutations.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// AuditEnvelope is the versioned wire shape of one audit event.
type AuditEnvelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Service       string  `json:"service"`
	Environment   string  `json:"environment"`
	RequestID     string  `json:"request_id"`
	UserID        *int64  `json:"user_id,omitempty"`
	SubjectUserID *int64  `json:"subject_user_id,omitempty"`
	RoomID        *int64  `json:"room_id,omitempty"`
	MessageID     *int64  `json:"message_id,omitempty"`
	Payload       Payload `json:"payload"`
}

// Payload carries the human-readable part of the event.
type Payload struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// NewAuditEmitter constructs an AuditEmitter.
func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Event identifies what happened and to which entities. SubjectID is
// set when the acting user and the affected account differ, as in the
// admin moderation actions.
type Event struct {
	Type      string
	Level     string
	Text      string
	RequestID string
	UserID    *int64
	SubjectID *int64
	RoomID    *int64
	MessageID *int64
}

// Emit publishes the event, logging and swallowing transport failures:
// audit must never fail a request.
func (e *AuditEmitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     event.Type,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     event.RequestID,
		UserID:        event.UserID,
		SubjectUserID: event.SubjectID,
		RoomID:        event.RoomID,
		MessageID:     event.MessageID,
		Payload: Payload{
			Level: event.Level,
			Text:  event.Text,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit publish failed: %v", err)
	}
}
