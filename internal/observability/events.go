package observability

import "context"

// EventPublisher is the transport used for operational events (ws lifecycle, errors).
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

type EventEnvelope struct {
	EventType string            `json:"event_type"`
	EventName string            `json:"event_name"`
	Headers   map[string]string `json:"headers,omitempty"`
	Payload   interface{}       `json:"payload"`
}

// AMQPHeaders exposes the envelope headers to the broker publisher.
func (e EventEnvelope) AMQPHeaders() map[string]string {
	return e.Headers
}

func BuildHeaders(requestID, traceID string) map[string]string {
	headers := map[string]string{}
	if requestID != "" {
		headers["x-request-id"] = requestID
	}
	if traceID != "" {
		headers["trace_id"] = traceID
	}
	return headers
}

var defaultPublisher EventPublisher

func SetPublisher(publisher EventPublisher) {
	defaultPublisher = publisher
}

// PublishEvent sends an envelope through the default publisher, if one is set.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope) error {
	if defaultPublisher == nil {
		return nil
	}

	return defaultPublisher.Publish(ctx, routingKey, envelope)
}
