package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/media"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// NewGroup describes a group to create.
type NewGroup struct {
	Participants   []string
	CreatorID      string
	Title          string
	Description    string
	Avatar         string
	InitialMessage string
}

// ChatRegistry manages chats, their membership and the per-user summaries.
type ChatRegistry interface {
	GetAll(ctx context.Context) ([]models.Chat, error)
	GetByID(ctx context.Context, chatID string) (models.Chat, error)
	IsParticipant(ctx context.Context, chatID, userID string) (bool, error)
	CreateIndividual(ctx context.Context, userA, userB, initialMessage string) (models.Chat, error)
	CreateGroup(ctx context.Context, group NewGroup) (models.Chat, error)
	UpdateGroupInfo(ctx context.Context, chatID string, update models.GroupUpdate, requesterID string) error
	UpdateUserRole(ctx context.Context, chatID, requesterID, targetID, role string) error
	RemoveUser(ctx context.Context, chatID, targetID, requesterID string) error
	AddUser(ctx context.Context, chatID, newUserID, requesterID string) error
	DeleteGroup(ctx context.Context, chatID, requesterID string) error
	DeleteChat(ctx context.Context, chatID, requesterID string) error
	MarkRead(ctx context.Context, chatID, userID string) error
}

// ChatService implements ChatRegistry on top of the tree store.
type ChatService struct {
	store    treestore.Store
	chats    repositories.ChatRepository
	users    repositories.UserRepository
	messages MessageLog
	events   fanout.Publisher
	media    media.Store
	now      func() time.Time
}

func NewChatService(store treestore.Store, chats repositories.ChatRepository, users repositories.UserRepository, messages MessageLog, events fanout.Publisher, mediaStore media.Store) *ChatService {
	if mediaStore == nil {
		mediaStore = media.PassthroughStore{}
	}
	return &ChatService{
		store:    store,
		chats:    chats,
		users:    users,
		messages: messages,
		events:   events,
		media:    mediaStore,
		now:      time.Now,
	}
}

func (s *ChatService) GetAll(ctx context.Context) ([]models.Chat, error) {
	chats, err := s.chats.ListChats(ctx)
	return chats, classify(err)
}

func (s *ChatService) GetByID(ctx context.Context, chatID string) (models.Chat, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	return chat, classify(err)
}

func (s *ChatService) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	chat, err := s.GetByID(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return chat.HasParticipant(userID), nil
}

// CreateIndividual returns the chat between userA and userB, creating it on first use.
func (s *ChatService) CreateIndividual(ctx context.Context, userA, userB, initialMessage string) (models.Chat, error) {
	if userA == "" || userB == "" {
		return models.Chat{}, invalid("both users are required")
	}
	if userA == userB {
		return models.Chat{}, invalid("cannot chat with yourself")
	}

	chatID := models.IndividualChatID(userA, userB)
	existing, err := s.GetByID(ctx, chatID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.Chat{}, err
	}

	participants := []string{userA, userB}
	sort.Strings(participants)
	chat := models.Chat{
		ID:           chatID,
		Type:         models.ChatIndividual,
		Participants: participants,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.store.Set(ctx, repositories.ChatPath(chatID), chat); err != nil {
		return models.Chat{}, classify(fmt.Errorf("create chat %s: %w", chatID, err))
	}

	summaries := map[string]any{}
	for _, uid := range chat.Participants {
		summary, err := initialSummary(ctx, s.users, chat, uid)
		if err != nil {
			return models.Chat{}, err
		}
		summaries[repositories.SummaryPath(uid, chatID)] = summary
	}
	if err := s.store.Patch(ctx, summaries); err != nil {
		return models.Chat{}, fmt.Errorf("write summaries of %s: %w", chatID, err)
	}

	if strings.TrimSpace(initialMessage) != "" {
		if _, err := s.messages.Append(ctx, chatID, userA, initialMessage, ""); err != nil {
			return models.Chat{}, err
		}
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chatID, FieldsUpdated: []string{"created"}})
	return s.GetByID(ctx, chatID)
}

func (s *ChatService) CreateGroup(ctx context.Context, group NewGroup) (models.Chat, error) {
	title := strings.TrimSpace(group.Title)
	if title == "" {
		return models.Chat{}, invalid("group title is required")
	}
	if group.CreatorID == "" {
		return models.Chat{}, invalid("creator is required")
	}

	participants := uniqueIDs(append([]string{group.CreatorID}, group.Participants...))
	avatar, err := s.media.Offload(ctx, media.KindGroupAvatar, group.Avatar)
	if err != nil {
		return models.Chat{}, fmt.Errorf("store group avatar: %w", err)
	}

	chat := models.Chat{
		ID:           uuid.NewString(),
		Type:         models.ChatGroup,
		Participants: participants,
		Title:        title,
		Description:  group.Description,
		Avatar:       avatar,
		CreatorID:    group.CreatorID,
		Admin:        map[string]bool{group.CreatorID: true},
		CreatedAt:    s.now().UnixMilli(),
	}

	updates := map[string]any{repositories.ChatPath(chat.ID): chat}
	for _, uid := range participants {
		updates[repositories.SummaryPath(uid, chat.ID)] = groupSummary(chat)
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return models.Chat{}, classify(fmt.Errorf("create group: %w", err))
	}

	if strings.TrimSpace(group.InitialMessage) != "" {
		if _, err := s.messages.Append(ctx, chat.ID, group.CreatorID, group.InitialMessage, ""); err != nil {
			return models.Chat{}, err
		}
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chat.ID, FieldsUpdated: []string{"created"}})
	return s.GetByID(ctx, chat.ID)
}

func (s *ChatService) UpdateGroupInfo(ctx context.Context, chatID string, update models.GroupUpdate, requesterID string) error {
	if update.Empty() {
		return invalid("no fields to update")
	}
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return invalid("group title cannot be empty")
	}

	chat, err := s.group(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsAdmin(requesterID) {
		return denied("only the creator or an admin can update the group")
	}

	updates := map[string]any{}
	var fields []string
	summaryFields := map[string]any{}
	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		updates[repositories.ChatFieldPath(chatID, "title")] = title
		summaryFields["title"] = title
		summaryFields["name"] = title
		fields = append(fields, "title")
	}
	if update.Description != nil {
		updates[repositories.ChatFieldPath(chatID, "description")] = *update.Description
		fields = append(fields, "description")
	}
	if update.Avatar != nil {
		avatar, err := s.media.Offload(ctx, media.KindGroupAvatar, *update.Avatar)
		if err != nil {
			return fmt.Errorf("store group avatar: %w", err)
		}
		updates[repositories.ChatFieldPath(chatID, "avatar")] = avatar
		summaryFields["avatar"] = avatar
		fields = append(fields, "avatar")
	}
	for _, uid := range chat.Participants {
		if len(summaryFields) == 0 {
			break
		}
		// a missing summary is left to the reconciler rather than half-written
		if _, ok, err := s.users.GetSummary(ctx, uid, chatID); err != nil {
			return err
		} else if !ok {
			continue
		}
		for field, value := range summaryFields {
			updates[repositories.SummaryFieldPath(uid, chatID, field)] = value
		}
	}

	if err := s.store.Patch(ctx, updates); err != nil {
		return fmt.Errorf("update group %s: %w", chatID, err)
	}
	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chatID, FieldsUpdated: fields})
	return nil
}

func (s *ChatService) UpdateUserRole(ctx context.Context, chatID, requesterID, targetID, role string) error {
	if role != RoleAdmin && role != RoleMember {
		return invalid("unknown role %q", role)
	}

	chat, err := s.group(ctx, chatID)
	if err != nil {
		return err
	}
	if requesterID != chat.CreatorID {
		return denied("only the creator can change roles")
	}
	if !chat.HasParticipant(targetID) {
		return notFound("user %s is not a participant", targetID)
	}

	var value any
	if role == RoleAdmin {
		value = true
	} else if targetID == chat.CreatorID {
		return invalid("the creator cannot be demoted")
	}
	if err := s.store.Set(ctx, repositories.AdminPath(chatID, targetID), value); err != nil {
		return fmt.Errorf("set role of %s in %s: %w", targetID, chatID, err)
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chatID, FieldsUpdated: []string{"admin"}})
	return nil
}

func (s *ChatService) RemoveUser(ctx context.Context, chatID, targetID, requesterID string) error {
	chat, err := s.group(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(targetID) {
		return notFound("user %s is not a participant", targetID)
	}

	if requesterID == chat.CreatorID && targetID == chat.CreatorID {
		return s.deleteCascade(ctx, chat)
	}
	if targetID == chat.CreatorID {
		return denied("the creator cannot be removed")
	}
	if !mayRemove(chat, requesterID, targetID) {
		return denied("not allowed to remove %s", targetID)
	}

	remaining := make([]string, 0, len(chat.Participants))
	for _, uid := range chat.Participants {
		if uid != targetID {
			remaining = append(remaining, uid)
		}
	}
	updates := map[string]any{
		repositories.ParticipantsPath(chatID):         remaining,
		repositories.AdminPath(chatID, targetID):      nil,
		repositories.SummaryPath(targetID, chatID):    nil,
		repositories.HiddenChatPath(targetID, chatID): nil,
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return fmt.Errorf("remove %s from %s: %w", targetID, chatID, err)
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chatID, FieldsUpdated: []string{"participants"}})
	return nil
}

func (s *ChatService) AddUser(ctx context.Context, chatID, newUserID, requesterID string) error {
	chat, err := s.group(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsAdmin(requesterID) {
		return denied("only the creator or an admin can add members")
	}
	if chat.HasParticipant(newUserID) {
		return invalid("user %s is already a participant", newUserID)
	}
	if _, err := s.users.GetUser(ctx, newUserID); err != nil {
		return classify(err)
	}

	summary := groupSummary(chat)
	if last, ok := lastMessageOf(chat); ok {
		summary.LastMessage = last.Preview()
		summary.LastUser = last.Sender
		summary.Timestamp = last.Timestamp
	}

	updates := map[string]any{
		repositories.ParticipantsPath(chatID):       append(chat.Participants, newUserID),
		repositories.SummaryPath(newUserID, chatID): summary,
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return fmt.Errorf("add %s to %s: %w", newUserID, chatID, err)
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chatID, FieldsUpdated: []string{"participants"}})
	return nil
}

func (s *ChatService) DeleteGroup(ctx context.Context, chatID, requesterID string) error {
	chat, err := s.group(ctx, chatID)
	if err != nil {
		return err
	}
	if requesterID != chat.CreatorID {
		return denied("only the creator can delete the group")
	}
	return s.deleteCascade(ctx, chat)
}

// DeleteChat deletes any chat. Participants may delete individual chats; groups need their creator.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, requesterID string) error {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.HasParticipant(requesterID) {
		return denied("not a participant of %s", chatID)
	}
	if chat.Type == models.ChatGroup && requesterID != chat.CreatorID {
		return denied("only the creator can delete the group")
	}
	return s.deleteCascade(ctx, chat)
}

func (s *ChatService) MarkRead(ctx context.Context, chatID, userID string) error {
	_, ok, err := s.users.GetSummary(ctx, userID, chatID)
	if err != nil {
		return classify(err)
	}
	if !ok {
		return notFound("chat %s is not in the chat list of %s", chatID, userID)
	}
	if err := s.store.Set(ctx, repositories.SummaryFieldPath(userID, chatID, "unreadCount"), 0); err != nil {
		return fmt.Errorf("mark %s read for %s: %w", chatID, userID, err)
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chatID, FieldsUpdated: []string{"unreadCount"}})
	return nil
}

func (s *ChatService) group(ctx context.Context, chatID string) (models.Chat, error) {
	chat, err := s.GetByID(ctx, chatID)
	if err != nil {
		return models.Chat{}, err
	}
	if chat.Type != models.ChatGroup {
		return models.Chat{}, invalid("chat %s is not a group", chatID)
	}
	return chat, nil
}

// deleteCascade removes the chat with every participant's summary and hidden entry.
func (s *ChatService) deleteCascade(ctx context.Context, chat models.Chat) error {
	updates := map[string]any{repositories.ChatPath(chat.ID): nil}
	for _, uid := range chat.Participants {
		updates[repositories.SummaryPath(uid, chat.ID)] = nil
		updates[repositories.HiddenChatPath(uid, chat.ID)] = nil
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return fmt.Errorf("delete chat %s: %w", chat.ID, err)
	}

	s.events.Publish(ctx, fanout.TopicChats, models.ChatsChanged{ChatID: chat.ID, FieldsUpdated: []string{"deleted"}})
	return nil
}

// mayRemove applies the membership rules for removing someone other than the creator.
func mayRemove(chat models.Chat, requesterID, targetID string) bool {
	switch {
	case targetID == requesterID:
		return true
	case requesterID == chat.CreatorID:
		return true
	case chat.Admin[requesterID] && chat.HasParticipant(requesterID):
		return !chat.IsAdmin(targetID)
	}
	return false
}

func lastMessageOf(chat models.Chat) (models.Message, bool) {
	msg, ok := chat.Messages[chat.LastMessageID]
	if chat.LastMessageID == "" || !ok {
		return models.Message{}, false
	}
	msg.ID = chat.LastMessageID
	return msg, true
}

// initialSummary builds the summary of chat as first seen by uid.
func initialSummary(ctx context.Context, users repositories.UserRepository, chat models.Chat, uid string) (models.ChatSummary, error) {
	if chat.Type == models.ChatGroup {
		return groupSummary(chat), nil
	}
	partner, err := lookupProfile(ctx, users, chat.Partner(uid))
	if err != nil {
		return models.ChatSummary{}, err
	}
	return individualSummary(chat, partner), nil
}

func groupSummary(chat models.Chat) models.ChatSummary {
	return models.ChatSummary{
		Title:     chat.Title,
		Name:      chat.Title,
		Avatar:    chat.Avatar,
		Type:      models.ChatGroup,
		Timestamp: chat.CreatedAt,
	}
}

func individualSummary(chat models.Chat, partner models.User) models.ChatSummary {
	name := partner.DisplayName()
	return models.ChatSummary{
		Title:     name,
		Name:      name,
		Avatar:    partner.Avatar,
		Type:      models.ChatIndividual,
		Timestamp: chat.CreatedAt,
	}
}

// lookupProfile returns the profile of uid, or a bare profile when it does not exist.
func lookupProfile(ctx context.Context, users repositories.UserRepository, uid string) (models.User, error) {
	user, err := users.GetUser(ctx, uid)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{UID: uid}, nil
	}
	if err != nil {
		return models.User{}, classify(err)
	}
	return user, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var _ ChatRegistry = (*ChatService)(nil)
