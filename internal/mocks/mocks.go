package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-sync-service/internal/identity"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/services"
)

type ChatRegistryMock struct {
	mock.Mock
}

func (m *ChatRegistryMock) GetAll(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var list []models.Chat
	if val := args.Get(0); val != nil {
		list = val.([]models.Chat)
	}
	return list, args.Error(1)
}

func (m *ChatRegistryMock) GetByID(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRegistryMock) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRegistryMock) CreateIndividual(ctx context.Context, userA, userB, initialMessage string) (models.Chat, error) {
	args := m.Called(ctx, userA, userB, initialMessage)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRegistryMock) CreateGroup(ctx context.Context, group services.NewGroup) (models.Chat, error) {
	args := m.Called(ctx, group)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRegistryMock) UpdateGroupInfo(ctx context.Context, chatID string, update models.GroupUpdate, requesterID string) error {
	args := m.Called(ctx, chatID, update, requesterID)
	return args.Error(0)
}

func (m *ChatRegistryMock) UpdateUserRole(ctx context.Context, chatID, requesterID, targetID, role string) error {
	args := m.Called(ctx, chatID, requesterID, targetID, role)
	return args.Error(0)
}

func (m *ChatRegistryMock) RemoveUser(ctx context.Context, chatID, targetID, requesterID string) error {
	args := m.Called(ctx, chatID, targetID, requesterID)
	return args.Error(0)
}

func (m *ChatRegistryMock) AddUser(ctx context.Context, chatID, newUserID, requesterID string) error {
	args := m.Called(ctx, chatID, newUserID, requesterID)
	return args.Error(0)
}

func (m *ChatRegistryMock) DeleteGroup(ctx context.Context, chatID, requesterID string) error {
	args := m.Called(ctx, chatID, requesterID)
	return args.Error(0)
}

func (m *ChatRegistryMock) DeleteChat(ctx context.Context, chatID, requesterID string) error {
	args := m.Called(ctx, chatID, requesterID)
	return args.Error(0)
}

func (m *ChatRegistryMock) MarkRead(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MessageLogMock struct {
	mock.Mock
}

func (m *MessageLogMock) Append(ctx context.Context, chatID, sender, content, image string) (models.Message, error) {
	args := m.Called(ctx, chatID, sender, content, image)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageLogMock) Update(ctx context.Context, chatID, messageID, content string) (models.Message, error) {
	args := m.Called(ctx, chatID, messageID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageLogMock) SoftDelete(ctx context.Context, chatID, messageID string) (models.Message, error) {
	args := m.Called(ctx, chatID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageLogMock) List(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *MessageLogMock) GetByID(ctx context.Context, chatID, messageID string) (models.Message, error) {
	args := m.Called(ctx, chatID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type UserDirectoryMock struct {
	mock.Mock
}

func (m *UserDirectoryMock) GetByID(ctx context.Context, uid string) (models.User, error) {
	args := m.Called(ctx, uid)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserDirectoryMock) GetAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *UserDirectoryMock) Upsert(ctx context.Context, uid string, user models.User) (models.User, error) {
	args := m.Called(ctx, uid, user)
	var saved models.User
	if val := args.Get(0); val != nil {
		saved = val.(models.User)
	}
	return saved, args.Error(1)
}

func (m *UserDirectoryMock) InitializeIfMissing(ctx context.Context, uid, email, displayName, avatar string) (models.User, bool, error) {
	args := m.Called(ctx, uid, email, displayName, avatar)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Bool(1), args.Error(2)
}

func (m *UserDirectoryMock) UpdateStatus(ctx context.Context, uid, status string) error {
	args := m.Called(ctx, uid, status)
	return args.Error(0)
}

func (m *UserDirectoryMock) UpdateBio(ctx context.Context, uid, bio string) error {
	args := m.Called(ctx, uid, bio)
	return args.Error(0)
}

func (m *UserDirectoryMock) UpdateProfile(ctx context.Context, uid string, update services.ProfileUpdate) (models.User, error) {
	args := m.Called(ctx, uid, update)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserDirectoryMock) Delete(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *UserDirectoryMock) HideChat(ctx context.Context, uid, chatID, pin string) error {
	args := m.Called(ctx, uid, chatID, pin)
	return args.Error(0)
}

func (m *UserDirectoryMock) UnhideChat(ctx context.Context, uid, chatID string) error {
	args := m.Called(ctx, uid, chatID)
	return args.Error(0)
}

func (m *UserDirectoryMock) VerifyPin(ctx context.Context, uid, chatID, pin string) (bool, error) {
	args := m.Called(ctx, uid, chatID, pin)
	return args.Bool(0), args.Error(1)
}

func (m *UserDirectoryMock) ChatList(ctx context.Context) (map[string]models.ChatListEntry, error) {
	args := m.Called(ctx)
	var entries map[string]models.ChatListEntry
	if val := args.Get(0); val != nil {
		entries = val.(map[string]models.ChatListEntry)
	}
	return entries, args.Error(1)
}

func (m *UserDirectoryMock) RegisterDeviceToken(ctx context.Context, uid, token string) error {
	args := m.Called(ctx, uid, token)
	return args.Error(0)
}

func (m *UserDirectoryMock) RemoveDeviceToken(ctx context.Context, uid, token string) error {
	args := m.Called(ctx, uid, token)
	return args.Error(0)
}

type FriendsMock struct {
	mock.Mock
}

func (m *FriendsMock) SendRequest(ctx context.Context, fromID, toID string) error {
	args := m.Called(ctx, fromID, toID)
	return args.Error(0)
}

func (m *FriendsMock) Accept(ctx context.Context, uid, fromID string) error {
	args := m.Called(ctx, uid, fromID)
	return args.Error(0)
}

func (m *FriendsMock) Reject(ctx context.Context, uid, fromID string) error {
	args := m.Called(ctx, uid, fromID)
	return args.Error(0)
}

func (m *FriendsMock) ListFriends(ctx context.Context, uid string) ([]models.User, error) {
	args := m.Called(ctx, uid)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

func (m *FriendsMock) ListRequests(ctx context.Context, uid string) ([]models.User, error) {
	args := m.Called(ctx, uid)
	var list []models.User
	if val := args.Get(0); val != nil {
		list = val.([]models.User)
	}
	return list, args.Error(1)
}

type RegistrationMock struct {
	mock.Mock
}

func (m *RegistrationMock) Register(ctx context.Context, email, password string) (identity.Account, error) {
	args := m.Called(ctx, email, password)
	var account identity.Account
	if val := args.Get(0); val != nil {
		account = val.(identity.Account)
	}
	return account, args.Error(1)
}

func (m *RegistrationMock) SendVerification(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *RegistrationMock) Login(ctx context.Context, email, password string) (identity.Account, error) {
	args := m.Called(ctx, email, password)
	var account identity.Account
	if val := args.Get(0); val != nil {
		account = val.(identity.Account)
	}
	return account, args.Error(1)
}

func (m *RegistrationMock) Logout(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *RegistrationMock) GoogleLogin(ctx context.Context, idToken string) (identity.Claims, error) {
	args := m.Called(ctx, idToken)
	var claims identity.Claims
	if val := args.Get(0); val != nil {
		claims = val.(identity.Claims)
	}
	return claims, args.Error(1)
}

var (
	_ services.ChatRegistry  = (*ChatRegistryMock)(nil)
	_ services.MessageLog    = (*MessageLogMock)(nil)
	_ services.UserDirectory = (*UserDirectoryMock)(nil)
	_ services.Friends       = (*FriendsMock)(nil)
	_ services.Registration  = (*RegistrationMock)(nil)
)
