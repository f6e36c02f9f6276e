package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"chat-sync-service/internal/media"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

// ProfileUpdate carries the fields editable from the profile screen.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Avatar    string
}

// UserDirectory manages profiles and the per-user settings stored with them.
type UserDirectory interface {
	GetByID(ctx context.Context, uid string) (models.User, error)
	GetAll(ctx context.Context) ([]models.User, error)
	Upsert(ctx context.Context, uid string, user models.User) (models.User, error)
	InitializeIfMissing(ctx context.Context, uid, email, displayName, avatar string) (models.User, bool, error)
	UpdateStatus(ctx context.Context, uid, status string) error
	UpdateBio(ctx context.Context, uid, bio string) error
	UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (models.User, error)
	Delete(ctx context.Context, uid string) error
	HideChat(ctx context.Context, uid, chatID, pin string) error
	UnhideChat(ctx context.Context, uid, chatID string) error
	VerifyPin(ctx context.Context, uid, chatID, pin string) (bool, error)
	ChatList(ctx context.Context) (map[string]models.ChatListEntry, error)
	RegisterDeviceToken(ctx context.Context, uid, token string) error
	RemoveDeviceToken(ctx context.Context, uid, token string) error
}

// UserService implements UserDirectory.
type UserService struct {
	store treestore.Store
	users repositories.UserRepository
	chats repositories.ChatRepository
	media media.Store
}

func NewUserService(store treestore.Store, users repositories.UserRepository, chats repositories.ChatRepository, mediaStore media.Store) *UserService {
	if mediaStore == nil {
		mediaStore = media.PassthroughStore{}
	}
	return &UserService{store: store, users: users, chats: chats, media: mediaStore}
}

func (s *UserService) GetByID(ctx context.Context, uid string) (models.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return models.User{}, classify(err)
	}
	return user.Public(), nil
}

func (s *UserService) GetAll(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, classify(err)
	}
	for i := range users {
		users[i] = users[i].Public()
	}
	return users, nil
}

// Upsert creates the profile or merges the given profile fields into it.
func (s *UserService) Upsert(ctx context.Context, uid string, user models.User) (models.User, error) {
	if uid == "" {
		return models.User{}, invalid("uid is required")
	}
	avatar, err := s.media.Offload(ctx, media.KindUserAvatar, user.Avatar)
	if err != nil {
		return models.User{}, fmt.Errorf("store avatar: %w", err)
	}

	fields := map[string]any{"uid": uid}
	for field, value := range map[string]string{
		"username":  user.Username,
		"email":     user.Email,
		"status":    user.Status,
		"avatar":    avatar,
		"bio":       user.Bio,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
	} {
		if value != "" {
			fields[field] = value
		}
	}
	if err := s.store.Update(ctx, repositories.UserPath(uid), fields); err != nil {
		return models.User{}, classify(fmt.Errorf("upsert user %s: %w", uid, err))
	}
	return s.GetByID(ctx, uid)
}

// InitializeIfMissing creates a minimal offline profile on first sign-in. It reports whether one was created.
func (s *UserService) InitializeIfMissing(ctx context.Context, uid, email, displayName, avatar string) (models.User, bool, error) {
	existing, err := s.users.GetUser(ctx, uid)
	if err == nil {
		return existing.Public(), false, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, false, classify(err)
	}

	username := strings.TrimSpace(displayName)
	if username == "" {
		username = email
	}
	if username == "" {
		username = models.UnknownUsername
	}
	user := models.User{
		UID:      uid,
		Username: username,
		Email:    email,
		Status:   models.StatusOffline,
		Avatar:   avatar,
	}
	if err := s.store.Set(ctx, repositories.UserPath(uid), user); err != nil {
		return models.User{}, false, classify(fmt.Errorf("initialize user %s: %w", uid, err))
	}
	return user, true, nil
}

func (s *UserService) UpdateStatus(ctx context.Context, uid, status string) error {
	status = strings.TrimSpace(status)
	if status == "" {
		return invalid("status is required")
	}
	return s.setField(ctx, uid, "status", status)
}

func (s *UserService) UpdateBio(ctx context.Context, uid, bio string) error {
	return s.setField(ctx, uid, "bio", bio)
}

// UpdateProfile changes the name and avatar and refreshes them in every 1:1 partner's summary.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (models.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return models.User{}, classify(err)
	}

	user.FirstName = strings.TrimSpace(update.FirstName)
	user.LastName = strings.TrimSpace(update.LastName)
	if update.Avatar != "" {
		if user.Avatar, err = s.media.Offload(ctx, media.KindUserAvatar, update.Avatar); err != nil {
			return models.User{}, fmt.Errorf("store avatar: %w", err)
		}
	}

	updates := map[string]any{
		repositories.UserFieldPath(uid, "firstName"): user.FirstName,
		repositories.UserFieldPath(uid, "lastName"):  user.LastName,
		repositories.UserFieldPath(uid, "avatar"):    user.Avatar,
	}
	name := user.DisplayName()
	for chatID, summary := range user.ChatUser {
		if summary.Type != models.ChatIndividual {
			continue
		}
		chat, err := s.chats.GetChat(ctx, chatID)
		if errors.Is(err, repositories.ErrChatNotFound) {
			continue
		}
		if err != nil {
			return models.User{}, classify(err)
		}
		partner := chat.Partner(uid)
		if partner == "" {
			continue
		}
		if _, ok, err := s.users.GetSummary(ctx, partner, chatID); err != nil {
			return models.User{}, err
		} else if !ok {
			continue
		}
		updates[repositories.SummaryFieldPath(partner, chatID, "title")] = name
		updates[repositories.SummaryFieldPath(partner, chatID, "name")] = name
		updates[repositories.SummaryFieldPath(partner, chatID, "avatar")] = user.Avatar
	}

	if err := s.store.Patch(ctx, updates); err != nil {
		return models.User{}, fmt.Errorf("update profile %s: %w", uid, err)
	}
	return user.Public(), nil
}

// Delete removes the profile. Partner summaries are repaired by the reconciler.
func (s *UserService) Delete(ctx context.Context, uid string) error {
	if _, err := s.users.GetUser(ctx, uid); err != nil {
		return classify(err)
	}
	if err := s.store.Delete(ctx, repositories.UserPath(uid)); err != nil {
		return fmt.Errorf("delete user %s: %w", uid, err)
	}
	return nil
}

func (s *UserService) HideChat(ctx context.Context, uid, chatID, pin string) error {
	if pin == "" {
		return invalid("pin is required")
	}
	if _, ok, err := s.users.GetSummary(ctx, uid, chatID); err != nil {
		return classify(err)
	} else if !ok {
		return notFound("chat %s is not in the chat list of %s", chatID, uid)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.store.Set(ctx, repositories.HiddenChatPath(uid, chatID), models.HiddenChat{PIN: string(hash)}); err != nil {
		return fmt.Errorf("hide chat %s for %s: %w", chatID, uid, err)
	}
	return nil
}

func (s *UserService) UnhideChat(ctx context.Context, uid, chatID string) error {
	if err := s.store.Delete(ctx, repositories.HiddenChatPath(uid, chatID)); err != nil {
		return classify(fmt.Errorf("unhide chat %s for %s: %w", chatID, uid, err))
	}
	return nil
}

// VerifyPin checks pin against the stored hash. Values stored before hashing was introduced are compared as is.
func (s *UserService) VerifyPin(ctx context.Context, uid, chatID, pin string) (bool, error) {
	var hidden models.HiddenChat
	ok, err := s.store.GetInto(ctx, repositories.HiddenChatPath(uid, chatID), &hidden)
	if err != nil {
		return false, classify(err)
	}
	if !ok || hidden.PIN == "" {
		return false, notFound("chat %s is not hidden for %s", chatID, uid)
	}

	if strings.HasPrefix(hidden.PIN, "$2") {
		err := bcrypt.CompareHashAndPassword([]byte(hidden.PIN), []byte(pin))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	}
	return subtle.ConstantTimeCompare([]byte(hidden.PIN), []byte(pin)) == 1, nil
}

func (s *UserService) ChatList(ctx context.Context) (map[string]models.ChatListEntry, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, classify(err)
	}
	out := make(map[string]models.ChatListEntry, len(users))
	for _, u := range users {
		out[u.UID] = models.ChatListEntry{
			Username: u.DisplayName(),
			Avatar:   u.Avatar,
			Status:   u.Status,
		}
	}
	return out, nil
}

func (s *UserService) RegisterDeviceToken(ctx context.Context, uid, token string) error {
	if strings.TrimSpace(token) == "" {
		return invalid("token is required")
	}
	if _, err := s.users.GetUser(ctx, uid); err != nil {
		return classify(err)
	}
	return classify(s.store.Set(ctx, repositories.DeviceTokenPath(uid, token), true))
}

func (s *UserService) RemoveDeviceToken(ctx context.Context, uid, token string) error {
	return classify(s.store.Delete(ctx, repositories.DeviceTokenPath(uid, token)))
}

func (s *UserService) setField(ctx context.Context, uid, field string, value any) error {
	if _, err := s.users.GetUser(ctx, uid); err != nil {
		return classify(err)
	}
	if err := s.store.Set(ctx, repositories.UserFieldPath(uid, field), value); err != nil {
		return fmt.Errorf("set %s of %s: %w", field, uid, err)
	}
	return nil
}

var _ UserDirectory = (*UserService)(nil)
