package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	routingKey string
	event      any
}

func (c *capturePublisher) Publish(ctx context.Context, routingKey string, event any) error {
	c.routingKey = routingKey
	c.event = event
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func TestEmitBuildsEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	emitter := NewAuditEmitter(pub, "audit.chat", "chat-sync-service", "test")

	emitter.Emit(context.Background(), AuditRecord{Action: "group.delete", Resource: "chats/g1", RequestID: "r1", UserID: "alice"})

	assert.Equal(t, "audit.chat", pub.routingKey)
	envelope, ok := pub.event.(AuditEnvelope)
	require.True(t, ok)
	assert.Equal(t, "audit_log", envelope.EventType)
	assert.Equal(t, "INFO", envelope.Payload.Level)
	assert.Equal(t, "group.delete", envelope.Payload.Action)
	assert.Equal(t, "alice", envelope.UserID)
	assert.NotEmpty(t, envelope.OccurredAt)
}

func TestEmitOnNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() { emitter.Emit(context.Background(), AuditRecord{Action: "x"}) })
}
