package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, topic string, payload any) {
	m.Called(ctx, topic, payload)
}

// tickingClock advances one millisecond per reading so timestamps are strictly ordered.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	ctx        context.Context
	store      *treestore.Client
	events     *publisherMock
	chatRepo   *repositories.ChatRepo
	userRepo   *repositories.UserRepo
	chats      *ChatService
	messages   *MessageService
	users      *UserService
	friends    *FriendService
	reconciler *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := treestore.NewMemoryClient()
	events := &publisherMock{}
	events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Maybe()

	chatRepo := repositories.NewChatRepo(store)
	messageRepo := repositories.NewMessageRepo(store)
	userRepo := repositories.NewUserRepo(store)
	clock := &tickingClock{now: time.UnixMilli(1_700_000_000_000)}

	messages := NewMessageService(store, chatRepo, messageRepo, userRepo, events, nil, nil)
	messages.now = clock.Now
	chats := NewChatService(store, chatRepo, userRepo, messages, events, nil)
	chats.now = clock.Now

	return &fixture{
		ctx:        context.Background(),
		store:      store,
		events:     events,
		chatRepo:   chatRepo,
		userRepo:   userRepo,
		chats:      chats,
		messages:   messages,
		users:      NewUserService(store, userRepo, chatRepo, nil),
		friends:    NewFriendService(store, userRepo),
		reconciler: NewReconciler(store, chatRepo, userRepo),
	}
}

func (f *fixture) addUser(t *testing.T, uid, first, last string) {
	t.Helper()
	_, err := f.users.Upsert(f.ctx, uid, models.User{
		Username:  uid,
		Email:     uid + "@example.com",
		FirstName: first,
		LastName:  last,
		Status:    models.StatusOffline,
	})
	require.NoError(t, err)
}

func (f *fixture) summary(t *testing.T, uid, chatID string) (models.ChatSummary, bool) {
	t.Helper()
	summary, ok, err := f.userRepo.GetSummary(f.ctx, uid, chatID)
	require.NoError(t, err)
	return summary, ok
}

// group creates "team" owned by alice with bob and carol, and bob promoted to admin.
func (f *fixture) group(t *testing.T) models.Chat {
	t.Helper()
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		f.addUser(t, u, "", "")
	}
	chat, err := f.chats.CreateGroup(f.ctx, NewGroup{
		Participants: []string{"bob", "carol"},
		CreatorID:    "alice",
		Title:        "team",
	})
	require.NoError(t, err)
	require.NoError(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "alice", "bob", RoleAdmin))
	return chat
}
