package fanout

import (
	"context"
	"log"
	"time"

	"chat-sync-service/internal/observability"
	"chat-sync-service/internal/rabbitmq"
)

const (
	TopicChats = "chats"
	TopicUsers = "users"

	messagesTopicPrefix = "messages."
	routingKeyPrefix    = "fanout."
)

// MessagesTopic is the per-chat message topic.
func MessagesTopic(chatID string) string {
	return messagesTopicPrefix + chatID
}

// ChatIDFromTopic extracts the chat id of a messages topic.
func ChatIDFromTopic(topic string) (string, bool) {
	if len(topic) <= len(messagesTopicPrefix) || topic[:len(messagesTopicPrefix)] != messagesTopicPrefix {
		return "", false
	}
	return topic[len(messagesTopicPrefix):], true
}

// Publisher announces changes to whoever is subscribed right now.
// Delivery is at most once and nothing is retained.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// Sink receives frames for locally connected subscribers.
type Sink interface {
	Broadcast(topic string, payload any)
}

// Envelope is the message mirrored to the broker.
type Envelope struct {
	Topic       string `json:"topic"`
	Payload     any    `json:"payload"`
	PublishedAt string `json:"published_at"`
}

// Broadcaster delivers to the websocket hub and mirrors every publish to RabbitMQ.
type Broadcaster struct {
	sink   Sink
	mirror rabbitmq.Publisher
}

// NewBroadcaster builds a Broadcaster. Either side may be nil.
func NewBroadcaster(sink Sink, mirror rabbitmq.Publisher) *Broadcaster {
	return &Broadcaster{sink: sink, mirror: mirror}
}

func (b *Broadcaster) Publish(ctx context.Context, topic string, payload any) {
	observability.IncFanoutPublished(topic)
	if b.sink != nil {
		b.sink.Broadcast(topic, payload)
	}
	if b.mirror == nil {
		return
	}
	envelope := Envelope{Topic: topic, Payload: payload, PublishedAt: time.Now().UTC().Format(time.RFC3339Nano)}
	if err := b.mirror.Publish(context.WithoutCancel(ctx), routingKeyPrefix+topic, envelope); err != nil {
		log.Printf("fanout mirror failed topic=%s: %v", topic, err)
	}
}

var _ Publisher = (*Broadcaster)(nil)
