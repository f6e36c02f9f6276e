package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/media"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/push"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

// MessageLog owns the messages of a chat and keeps summaries in step with them.
type MessageLog interface {
	Append(ctx context.Context, chatID, sender, content, image string) (models.Message, error)
	Update(ctx context.Context, chatID, messageID, content string) (models.Message, error)
	SoftDelete(ctx context.Context, chatID, messageID string) (models.Message, error)
	List(ctx context.Context, chatID string) ([]models.Message, error)
	GetByID(ctx context.Context, chatID, messageID string) (models.Message, error)
}

// MessageService implements MessageLog.
type MessageService struct {
	store    treestore.Store
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	users    repositories.UserRepository
	events   fanout.Publisher
	notifier push.Notifier
	media    media.Store
	now      func() time.Time
}

func NewMessageService(store treestore.Store, chats repositories.ChatRepository, messages repositories.MessageRepository, users repositories.UserRepository, events fanout.Publisher, notifier push.Notifier, mediaStore media.Store) *MessageService {
	if notifier == nil {
		notifier = push.NoopNotifier{}
	}
	if mediaStore == nil {
		mediaStore = media.PassthroughStore{}
	}
	return &MessageService{
		store:    store,
		chats:    chats,
		messages: messages,
		users:    users,
		events:   events,
		notifier: notifier,
		media:    mediaStore,
		now:      time.Now,
	}
}

// Append stores a new message, moves the last-message pointer and updates every summary in one patch.
func (s *MessageService) Append(ctx context.Context, chatID, sender, content, image string) (models.Message, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Message{}, classify(err)
	}
	if strings.TrimSpace(content) == "" && image == "" {
		return models.Message{}, invalid("message needs content or an image")
	}
	if !chat.HasParticipant(sender) {
		return models.Message{}, denied("%s is not a participant of %s", sender, chatID)
	}

	if image != "" {
		if image, err = s.media.Offload(ctx, media.KindMessageImage, image); err != nil {
			return models.Message{}, fmt.Errorf("store message image: %w", err)
		}
	}

	now := s.now()
	msg := models.Message{
		ID:        newMessageID(now),
		Sender:    sender,
		Content:   content,
		Image:     image,
		Timestamp: now.UnixMilli(),
	}

	updates := map[string]any{
		repositories.MessagePath(chatID, msg.ID): msg,
		repositories.LastMessageIDPath(chatID):   msg.ID,
	}
	for _, uid := range chat.Participants {
		summary, ok, err := s.users.GetSummary(ctx, uid, chatID)
		if err != nil {
			return models.Message{}, err
		}
		if !ok {
			if summary, err = initialSummary(ctx, s.users, chat, uid); err != nil {
				return models.Message{}, err
			}
		}
		summary.LastMessage = msg.Preview()
		summary.LastUser = sender
		summary.Timestamp = msg.Timestamp
		if uid != sender {
			summary.UnreadCount++
		}
		updates[repositories.SummaryPath(uid, chatID)] = summary
	}

	if err := s.store.Patch(ctx, updates); err != nil {
		return models.Message{}, fmt.Errorf("append message to %s: %w", chatID, err)
	}

	if msgs, err := s.messages.ListMessages(ctx, chatID); err != nil {
		log.Printf("message list for fanout failed chat_id=%s: %v", chatID, err)
	} else {
		s.events.Publish(ctx, fanout.MessagesTopic(chatID), msgs)
	}
	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{
		ChatID:        chatID,
		FieldsUpdated: []string{"lastMessage", "lastUser", "timestamp"},
	})

	go s.notify(context.WithoutCancel(ctx), chat, msg)
	return msg, nil
}

// Update replaces the content of a live message.
func (s *MessageService) Update(ctx context.Context, chatID, messageID, content string) (models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return models.Message{}, invalid("content is required")
	}
	msg, err := s.GetByID(ctx, chatID, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.Deleted {
		return models.Message{}, invalid("message %s is deleted", messageID)
	}

	msg.Content = content
	updates := map[string]any{
		treestore.Join(repositories.MessagePath(chatID, messageID), "content"): content,
	}
	if err := s.propagateIfLast(ctx, chatID, msg, updates); err != nil {
		return models.Message{}, err
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return models.Message{}, fmt.Errorf("update message %s/%s: %w", chatID, messageID, err)
	}

	s.events.Publish(ctx, fanout.MessagesTopic(chatID), models.MessageUpdateNotification{ChatID: chatID, MessageID: messageID})
	return msg, nil
}

// SoftDelete tombstones a message. Deleting twice is a no-op.
func (s *MessageService) SoftDelete(ctx context.Context, chatID, messageID string) (models.Message, error) {
	msg, err := s.GetByID(ctx, chatID, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.Deleted {
		return msg, nil
	}

	msg.Content = models.DeletedMessageContent
	msg.Image = ""
	msg.Deleted = true
	base := repositories.MessagePath(chatID, messageID)
	updates := map[string]any{
		treestore.Join(base, "content"): msg.Content,
		treestore.Join(base, "image"):   nil,
		treestore.Join(base, "deleted"): true,
	}
	if err := s.propagateIfLast(ctx, chatID, msg, updates); err != nil {
		return models.Message{}, err
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return models.Message{}, fmt.Errorf("delete message %s/%s: %w", chatID, messageID, err)
	}

	s.events.Publish(ctx, fanout.MessagesTopic(chatID), models.MessageUpdateNotification{ChatID: chatID, MessageID: messageID})
	return msg, nil
}

func (s *MessageService) List(ctx context.Context, chatID string) ([]models.Message, error) {
	exists, err := s.chats.Exists(ctx, chatID)
	if err != nil {
		return nil, classify(err)
	}
	if !exists {
		return nil, notFound("chat %s", chatID)
	}
	msgs, err := s.messages.ListMessages(ctx, chatID)
	return msgs, classify(err)
}

func (s *MessageService) GetByID(ctx context.Context, chatID, messageID string) (models.Message, error) {
	msg, err := s.messages.GetMessage(ctx, chatID, messageID)
	return msg, classify(err)
}

// propagateIfLast adds the summary preview of msg to updates when msg is the chat's last message.
func (s *MessageService) propagateIfLast(ctx context.Context, chatID string, msg models.Message, updates map[string]any) error {
	lastID, err := s.chats.LastMessageID(ctx, chatID)
	if err != nil {
		return classify(err)
	}
	if lastID != msg.ID {
		return nil
	}

	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return classify(err)
	}
	for _, uid := range chat.Participants {
		if _, ok, err := s.users.GetSummary(ctx, uid, chatID); err != nil {
			return err
		} else if !ok {
			continue
		}
		updates[repositories.SummaryFieldPath(uid, chatID, "lastMessage")] = msg.Preview()
	}
	return nil
}

// notify pushes msg to the recipients' devices and forgets tokens the provider rejected.
func (s *MessageService) notify(ctx context.Context, chat models.Chat, msg models.Message) {
	tokensByUser := map[string]string{}
	var tokens []string
	for _, uid := range chat.Participants {
		if uid == msg.Sender {
			continue
		}
		userTokens, err := s.users.DeviceTokens(ctx, uid)
		if err != nil {
			log.Printf("push token lookup failed uid=%s: %v", uid, err)
			continue
		}
		for _, token := range userTokens {
			tokensByUser[token] = uid
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return
	}

	title := chat.Title
	if chat.Type == models.ChatIndividual {
		sender, err := lookupProfile(ctx, s.users, msg.Sender)
		if err != nil {
			log.Printf("push sender lookup failed uid=%s: %v", msg.Sender, err)
		}
		title = sender.DisplayName()
	}

	stale, err := s.notifier.Notify(ctx, tokens, push.Notification{
		Title: title,
		Body:  msg.Preview(),
		Data: map[string]string{
			"chatId":    chat.ID,
			"messageId": msg.ID,
		},
	})
	if err != nil {
		log.Printf("push failed chat_id=%s message_id=%s: %v", chat.ID, msg.ID, err)
	}
	for _, token := range stale {
		if err := s.store.Delete(ctx, repositories.DeviceTokenPath(tokensByUser[token], token)); err != nil {
			log.Printf("stale device token cleanup failed uid=%s: %v", tokensByUser[token], err)
		}
	}
}

func newMessageID(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("msg%d", now.UnixNano())
	}
	return fmt.Sprintf("msg%d-%s", now.UnixMilli(), hex.EncodeToString(buf))
}

var _ MessageLog = (*MessageService)(nil)
