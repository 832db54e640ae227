package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	routingKey string
	event      any
	err        error
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, event any) error {
	p.routingKey = routingKey
	p.event = event
	return p.err
}

func (p *capturePublisher) Close() error { return nil }

func TestEmitBuildsEnvelope(t *testing.T) {
	publisher := &capturePublisher{}
	emitter := NewAuditEmitter(publisher, "chat.audit.event", "chat-rooms-service", "test")

	userID := int64(1)
	messageID := int64(100)
	emitter.Emit(context.Background(), Event{
		Type:      "message_created",
		Level:     "INFO",
		Text:      "message created",
		RequestID: "req-1",
		UserID:    &userID,
		MessageID: &messageID,
	})

	require.Equal(t, "chat.audit.event", publisher.routingKey)
	envelope, ok := publisher.event.(AuditEnvelope)
	require.True(t, ok)
	assert.Equal(t, 1, envelope.SchemaVersion)
	assert.Equal(t, "message_created", envelope.EventType)
	assert.Equal(t, "chat-rooms-service", envelope.Service)
	assert.Equal(t, "test", envelope.Environment)
	assert.Equal(t, "req-1", envelope.RequestID)
	require.NotNil(t, envelope.UserID)
	assert.Equal(t, int64(1), *envelope.UserID)
	assert.Nil(t, envelope.RoomID)
	assert.NotEmpty(t, envelope.OccurredAt)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	publisher := &capturePublisher{err: errors.New("broker down")}
	emitter := NewAuditEmitter(publisher, "chat.audit.event", "chat-rooms-service", "test")

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), Event{Type: "message_created"})
	})
}

func TestEmitNilEmitterIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), Event{Type: "message_created"})
	})
}
