package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/treestore"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository abstracts typed reads over chats/{id}/messages.
type MessageRepository interface {
	GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]models.Message, error)
}

// MessageRepo reads messages from a tree store.
type MessageRepo struct {
	store treestore.Store
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(store treestore.Store) *MessageRepo {
	return &MessageRepo{store: store}
}

// GetMessage fetches one message.
func (r *MessageRepo) GetMessage(ctx context.Context, chatID, messageID string) (models.Message, error) {
	var msg models.Message
	ok, err := r.store.GetInto(ctx, MessagePath(chatID, messageID), &msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("get message %s/%s: %w", chatID, messageID, err)
	}
	if !ok {
		return models.Message{}, ErrMessageNotFound
	}
	msg.ID = messageID
	return msg, nil
}

// ListMessages returns the chat's messages ordered by timestamp, then id.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	var byID map[string]models.Message
	if _, err := r.store.GetInto(ctx, MessagesPath(chatID), &byID); err != nil {
		return nil, fmt.Errorf("list messages of %s: %w", chatID, err)
	}
	msgs := make([]models.Message, 0, len(byID))
	for id, msg := range byID {
		msg.ID = id
		msgs = append(msgs, msg)
	}
	SortMessages(msgs)
	return msgs, nil
}

// SortMessages orders messages chronologically.
func SortMessages(msgs []models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].ID < msgs[j].ID
	})
}

var _ MessageRepository = (*MessageRepo)(nil)
