package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/models"
)

const revalidateTimeout = 5 * time.Second

// Frame is what subscribers receive for every publish on a topic.
type Frame struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Hub maintains topic subscriptions of connected websocket clients.
type Hub struct {
	topics  map[string]map[*Client]bool
	clients map[*Client]bool
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]bool),
		clients: make(map[*Client]bool),
	}
}

// Register tracks a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

// Unregister drops a client and all its subscriptions, then closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	for topic, subs := range h.topics {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	close(c.send)
}

// Subscribe adds c to topic.
func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][c] = true
}

// Unsubscribe removes c from topic.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Subscribers returns the number of clients listening on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Broadcast queues payload for every subscriber of topic. Clients whose
// queue is full miss the frame. Chat lists are narrowed to the chats each
// subscriber participates in.
func (h *Hub) Broadcast(topic string, payload any) {
	switch p := payload.(type) {
	case []models.Chat:
		h.broadcastChats(topic, p)
		return
	case models.ChatsChanged:
		if membershipChanged(p) {
			go h.revalidate(fanout.MessagesTopic(p.ChatID))
		}
	}

	data, err := json.Marshal(Frame{Topic: topic, Payload: payload})
	if err != nil {
		log.Printf("websocket broadcast encode failed topic=%s: %v", topic, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		c.enqueue(topic, data)
	}
}

func (h *Hub) broadcastChats(topic string, chats []models.Chat) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		own := make([]models.Chat, 0)
		for _, chat := range chats {
			if chat.HasParticipant(c.info.UserID) {
				chat.Messages = nil
				own = append(own, chat)
			}
		}
		data, err := json.Marshal(Frame{Topic: topic, Payload: own})
		if err != nil {
			log.Printf("websocket broadcast encode failed topic=%s: %v", topic, err)
			return
		}
		c.enqueue(topic, data)
	}
}

// revalidate re-runs topic authorization for every subscriber of topic and
// drops the ones that are no longer allowed.
func (h *Hub) revalidate(topic string) {
	h.mu.RLock()
	subs := make([]*Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		subs = append(subs, c)
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()
	for _, c := range subs {
		if c.authorize == nil {
			continue
		}
		err := c.authorize(ctx, c.info.UserID, topic)
		switch {
		case err == nil:
		case errors.Is(err, ErrNotMember), errors.Is(err, ErrUnknownTopic):
			h.evict(c, topic, err)
		default:
			log.Printf("websocket revalidate failed topic=%s conn_id=%s: %v", topic, c.info.ConnID, err)
		}
	}
}

func membershipChanged(ev models.ChatsChanged) bool {
	for _, field := range ev.FieldsUpdated {
		if field == "participants" || field == "deleted" {
			return true
		}
	}
	return false
}

// evict removes c from topic and tells it why. The queue is only touched
// while the client is still registered, since Unregister closes it.
func (h *Hub) evict(c *Client, topic string, reason error) {
	data, err := json.Marshal(notice{"unsubscribed": topic, "reason": reason.Error()})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	if h.clients[c] {
		c.enqueue(topic, data)
	}
}
