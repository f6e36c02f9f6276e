package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/treestore"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts typed reads over the chats tree.
type ChatRepository interface {
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChats(ctx context.Context) ([]models.Chat, error)
	Exists(ctx context.Context, chatID string) (bool, error)
	LastMessageID(ctx context.Context, chatID string) (string, error)
}

// ChatRepo reads chats from a tree store.
type ChatRepo struct {
	store treestore.Store
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(store treestore.Store) *ChatRepo {
	return &ChatRepo{store: store}
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var chat models.Chat
	ok, err := r.store.GetInto(ctx, ChatPath(chatID), &chat)
	if err != nil {
		return models.Chat{}, fmt.Errorf("get chat %s: %w", chatID, err)
	}
	if !ok {
		return models.Chat{}, ErrChatNotFound
	}
	chat.ID = chatID
	return chat, nil
}

// ListChats returns every chat ordered by id.
func (r *ChatRepo) ListChats(ctx context.Context) ([]models.Chat, error) {
	var byID map[string]models.Chat
	if _, err := r.store.GetInto(ctx, ChatsRoot, &byID); err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	chats := make([]models.Chat, 0, len(byID))
	for id, chat := range byID {
		chat.ID = id
		chats = append(chats, chat)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].ID < chats[j].ID })
	return chats, nil
}

// Exists reports whether the chat record is present.
func (r *ChatRepo) Exists(ctx context.Context, chatID string) (bool, error) {
	value, err := r.store.Get(ctx, ChatFieldPath(chatID, "type"))
	if err != nil {
		return false, fmt.Errorf("check chat %s: %w", chatID, err)
	}
	return value != nil, nil
}

// LastMessageID reads the authoritative last-message pointer.
func (r *ChatRepo) LastMessageID(ctx context.Context, chatID string) (string, error) {
	var id string
	if _, err := r.store.GetInto(ctx, LastMessageIDPath(chatID), &id); err != nil {
		return "", fmt.Errorf("get last message of %s: %w", chatID, err)
	}
	return id, nil
}

var _ ChatRepository = (*ChatRepo)(nil)
