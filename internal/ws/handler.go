package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/observability"
)

var (
	ErrUnknownTopic = errors.New("unknown topic")
	ErrNotMember    = errors.New("not authorized for chat")
)

// MembershipChecker reports whether a user participates in a chat.
type MembershipChecker interface {
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
}

// NewTopicAuthorizer allows the chats and users topics to everyone and
// messages.{chatId} to the chat's participants.
func NewTopicAuthorizer(members MembershipChecker) TopicAuthorizer {
	return func(ctx context.Context, userID, topic string) error {
		switch topic {
		case fanout.TopicChats, fanout.TopicUsers:
			return nil
		}
		chatID, ok := fanout.ChatIDFromTopic(topic)
		if !ok {
			return ErrUnknownTopic
		}
		member, err := members.IsParticipant(ctx, chatID, userID)
		if err != nil {
			return err
		}
		if !member {
			return ErrNotMember
		}
		return nil
	}
}

// Handler upgrades /ws requests and attaches the connection to the hub.
type Handler struct {
	hub       *Hub
	auth      middleware.Authenticator
	authorize TopicAuthorizer
}

func NewHandler(hub *Hub, auth middleware.Authenticator, authorize TopicAuthorizer) *Handler {
	return &Handler{hub: hub, auth: auth, authorize: authorize}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, subscribes the topics named in ?topics= and starts the pumps.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-sync-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID, err := h.auth.Authenticate(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	topics := parseTopics(c.Query("topics"))
	for _, topic := range topics {
		if err := h.authorize(ctx, userID, topic); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "topic": topic})
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		Topics:      topics,
		ConnectedAt: time.Now(),
	}
	client := newClient(h.hub, conn, info, h.authorize)
	h.hub.Register(client)
	for _, topic := range topics {
		h.hub.Subscribe(client, topic)
	}

	observability.IncWSActive()
	publishLifecycle(ctx, "ws_connect", info, "")

	// The handshake request context ends when Handle returns.
	connCtx := context.WithoutCancel(ctx)
	go client.writePump()
	go func() {
		err := client.readPump(connCtx)
		h.hub.Unregister(client)
		observability.DecWSActive()
		reason := err.Error()
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			publishLifecycle(connCtx, "ws_error", info, reason)
		}
		publishLifecycle(connCtx, "ws_disconnect", info, reason)
	}()
}

func parseTopics(raw string) []string {
	var topics []string
	seen := map[string]bool{}
	for _, topic := range strings.Split(raw, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}
	return topics
}
