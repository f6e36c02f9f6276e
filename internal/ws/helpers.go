package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"chat-sync-service/internal/observability"
)

const lifecycleRoutingKey = "ws_events.topics"

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// publishLifecycle counts and publishes a connection lifecycle event.
func publishLifecycle(ctx context.Context, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(event)

	var duration int64
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, lifecycleRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Headers:   observability.BuildHeaders(info.RequestID, info.TraceID),
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration,
				"reason":      reason,
				"topics":      info.Topics,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	})
}
