package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync-service/internal/middleware"
	"chat-sync-service/internal/models"
)

func testClient(hub *Hub, userID string) *Client {
	c := newClient(hub, nil, ConnInfo{ConnID: userID, UserID: userID}, nil)
	hub.Register(c)
	return c
}

func TestHubSubscribeAndUnregister(t *testing.T) {
	hub := NewHub()
	c := testClient(hub, "alice")

	hub.Subscribe(c, "chats")
	hub.Subscribe(c, "messages.c1")
	assert.Equal(t, 1, hub.Subscribers("chats"))

	hub.Unsubscribe(c, "chats")
	assert.Equal(t, 0, hub.Subscribers("chats"))

	hub.Unregister(c)
	assert.Equal(t, 0, hub.Subscribers("messages.c1"))
	assert.Empty(t, hub.topics)

	// unregistering twice must not close the queue again
	hub.Unregister(c)
}

func TestHubBroadcastOnlyReachesTopicSubscribers(t *testing.T) {
	hub := NewHub()
	alice := testClient(hub, "alice")
	bob := testClient(hub, "bob")
	hub.Subscribe(alice, "messages.c1")
	hub.Subscribe(bob, "users")

	hub.Broadcast("messages.c1", map[string]string{"chatId": "c1"})

	require.Len(t, alice.send, 1)
	assert.Len(t, bob.send, 0)

	var frame struct {
		Topic   string            `json:"topic"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-alice.send, &frame))
	assert.Equal(t, "messages.c1", frame.Topic)
	assert.Equal(t, "c1", frame.Payload["chatId"])
}

func TestHubDropsFramesForSlowClients(t *testing.T) {
	hub := NewHub()
	c := testClient(hub, "slow")
	hub.Subscribe(c, "chats")

	for i := 0; i < sendQueueSize+10; i++ {
		hub.Broadcast("chats", i)
	}
	assert.Len(t, c.send, sendQueueSize)
}

type membership map[string][]string

func (m membership) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	for _, uid := range m[chatID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func TestHubNarrowsChatListsPerSubscriber(t *testing.T) {
	hub := NewHub()
	alice := testClient(hub, "alice")
	carol := testClient(hub, "carol")
	hub.Subscribe(alice, "chats")
	hub.Subscribe(carol, "chats")

	hub.Broadcast("chats", []models.Chat{{
		ID:           "alice_bob",
		Participants: []string{"alice", "bob"},
		Messages:     map[string]models.Message{"m1": {Content: "secret between alice and bob"}},
	}})

	require.Len(t, alice.send, 1)
	aliceFrame := string(<-alice.send)
	assert.Contains(t, aliceFrame, "alice_bob")
	assert.NotContains(t, aliceFrame, "secret")

	require.Len(t, carol.send, 1)
	var frame struct {
		Payload []models.Chat `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(<-carol.send, &frame))
	assert.Empty(t, frame.Payload)
}

func TestHubDropsMessageSubscribersAfterRemoval(t *testing.T) {
	hub := NewHub()
	members := membership{"g1": {"alice", "carol"}}
	authorize := NewTopicAuthorizer(members)

	alice := newClient(hub, nil, ConnInfo{ConnID: "a", UserID: "alice"}, authorize)
	carol := newClient(hub, nil, ConnInfo{ConnID: "c", UserID: "carol"}, authorize)
	hub.Register(alice)
	hub.Register(carol)
	require.NoError(t, alice.subscribe(context.Background(), "messages.g1"))
	require.NoError(t, carol.subscribe(context.Background(), "messages.g1"))

	members["g1"] = []string{"alice"}
	hub.Broadcast("chats", models.ChatsChanged{ChatID: "g1", FieldsUpdated: []string{"participants"}})

	require.Eventually(t, func() bool { return hub.Subscribers("messages.g1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast("messages.g1", "after removal")
	assert.Len(t, alice.send, 1)

	var got []string
	for len(carol.send) > 0 {
		got = append(got, string(<-carol.send))
	}
	require.Len(t, got, 1)
	assert.Contains(t, got[0], `"unsubscribed":"messages.g1"`)
}

func TestHubKeepsSubscribersOnUnrelatedChanges(t *testing.T) {
	hub := NewHub()
	authorize := NewTopicAuthorizer(membership{})
	c := newClient(hub, nil, ConnInfo{ConnID: "c", UserID: "carol"}, authorize)
	hub.Register(c)
	hub.Subscribe(c, "messages.g1")

	hub.Broadcast("chats", models.ChatsChanged{ChatID: "g1", FieldsUpdated: []string{"title"}})

	assert.Never(t, func() bool { return hub.Subscribers("messages.g1") == 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTopicAuthorizer(t *testing.T) {
	authorize := NewTopicAuthorizer(membership{"alice_bob": {"alice", "bob"}})
	ctx := context.Background()

	assert.NoError(t, authorize(ctx, "carol", "chats"))
	assert.NoError(t, authorize(ctx, "carol", "users"))
	assert.NoError(t, authorize(ctx, "alice", "messages.alice_bob"))
	assert.ErrorIs(t, authorize(ctx, "carol", "messages.alice_bob"), ErrNotMember)
	assert.ErrorIs(t, authorize(ctx, "alice", "presence"), ErrUnknownTopic)
}

func TestParseTopics(t *testing.T) {
	assert.Equal(t, []string{"chats", "messages.c1"}, parseTopics(" chats,messages.c1,,chats"))
	assert.Nil(t, parseTopics(""))
}

func TestHandlerSubscribesAndDelivers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	handler := NewHandler(hub, middleware.HeaderAuthenticator{}, NewTopicAuthorizer(membership{"c1": {"alice"}}))
	r := gin.New()
	r.GET("/ws", handler.Handle)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?topics=chats"
	header := http.Header{}
	header.Set("X-User-ID", "alice")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return hub.Subscribers("chats") == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(Command{Action: "subscribe", Topic: "messages.c1"}))
	var ack map[string]string
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "messages.c1", ack["subscribed"])

	hub.Broadcast("messages.c1", "hello")
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "messages.c1", frame.Topic)
	assert.Equal(t, "hello", frame.Payload)
}

func TestHandlerRejectsForbiddenTopics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(NewHub(), middleware.HeaderAuthenticator{}, NewTopicAuthorizer(membership{}))
	r := gin.New()
	r.GET("/ws", handler.Handle)

	req := httptest.NewRequest(http.MethodGet, "/ws?topics=messages.c1", nil)
	req.Header.Set("X-User-ID", "mallory")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
