package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/treestore"
)

func TestGetChatNotFound(t *testing.T) {
	repo := NewChatRepo(treestore.NewMemoryClient())

	_, err := repo.GetChat(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestGetChatFillsID(t *testing.T) {
	ctx := context.Background()
	store := treestore.NewMemoryClient()
	require.NoError(t, store.Set(ctx, ChatPath("alice_bob"), models.Chat{
		Type:         models.ChatIndividual,
		Participants: []string{"alice", "bob"},
	}))

	chat, err := NewChatRepo(store).GetChat(ctx, "alice_bob")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", chat.ID)
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)

	exists, err := NewChatRepo(store).Exists(ctx, "alice_bob")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestListMessagesSortedByTimestampThenID(t *testing.T) {
	ctx := context.Background()
	store := treestore.NewMemoryClient()
	require.NoError(t, store.Patch(ctx, map[string]any{
		MessagePath("c1", "m3"): models.Message{Sender: "a", Content: "third", Timestamp: 30},
		MessagePath("c1", "m1"): models.Message{Sender: "a", Content: "first", Timestamp: 10},
		MessagePath("c1", "m2"): models.Message{Sender: "b", Content: "tie-b", Timestamp: 10},
	}))

	msgs, err := NewMessageRepo(store).ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestListMessagesEmptyChat(t *testing.T) {
	msgs, err := NewMessageRepo(treestore.NewMemoryClient()).ListMessages(context.Background(), "none")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestDeviceTokensOnlyActive(t *testing.T) {
	ctx := context.Background()
	store := treestore.NewMemoryClient()
	require.NoError(t, store.Set(ctx, UserFieldPath("alice", "deviceTokens"), map[string]bool{"t2": true, "t1": true, "old": false}))

	tokens, err := NewUserRepo(store).DeviceTokens(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, tokens)
}
