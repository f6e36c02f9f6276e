package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
)

func TestInitializeIfMissing(t *testing.T) {
	f := newFixture(t)

	user, created, err := f.users.InitializeIfMissing(f.ctx, "u1", "u1@example.com", "", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "u1@example.com", user.Username)
	assert.Equal(t, models.StatusOffline, user.Status)

	_, created, err = f.users.InitializeIfMissing(f.ctx, "u1", "other@example.com", "Other", "")
	require.NoError(t, err)
	assert.False(t, created)

	anon, _, err := f.users.InitializeIfMissing(f.ctx, "u2", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.UnknownUsername, anon.Username)
}

func TestUpdateStatusAndBio(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "", "")

	assert.ErrorIs(t, f.users.UpdateStatus(f.ctx, "alice", " "), ErrInvalidArgument)
	assert.ErrorIs(t, f.users.UpdateStatus(f.ctx, "ghost", "online"), ErrNotFound)
	require.NoError(t, f.users.UpdateStatus(f.ctx, "alice", models.StatusOnline))
	require.NoError(t, f.users.UpdateBio(f.ctx, "alice", "hello there"))

	user, err := f.users.GetByID(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnline, user.Status)
	assert.Equal(t, "hello there", user.Bio)
}

func TestUpdateProfileRefreshesPartnerSummaries(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	user, err := f.users.UpdateProfile(f.ctx, "alice", ProfileUpdate{FirstName: "Alice", LastName: "Smith", Avatar: "https://cdn.example.com/alice.png"})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", user.DisplayName())

	bobView, _ := f.summary(t, "bob", "alice_bob")
	assert.Equal(t, "Alice Smith", bobView.Title)
	assert.Equal(t, "Alice Smith", bobView.Name)
	assert.Equal(t, "https://cdn.example.com/alice.png", bobView.Avatar)
	assert.Equal(t, "hi", bobView.LastMessage)

	// group summaries are named after the group
	groupView, _ := f.summary(t, "bob", chat.ID)
	assert.Equal(t, "team", groupView.Name)
}

func TestUpdateProfileSkipsPartnersWithoutSummary(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "", "")
	f.addUser(t, "bob", "", "")
	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(f.ctx, repositories.SummaryPath("bob", "alice_bob")))

	_, err = f.users.UpdateProfile(f.ctx, "alice", ProfileUpdate{FirstName: "Alice"})
	require.NoError(t, err)

	_, ok := f.summary(t, "bob", "alice_bob")
	assert.False(t, ok)
}

func TestHiddenChatPins(t *testing.T) {
	f := newFixture(t)
	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.HideChat(f.ctx, "alice", "alice_bob", ""), ErrInvalidArgument)
	assert.ErrorIs(t, f.users.HideChat(f.ctx, "alice", "other", "1234"), ErrNotFound)
	require.NoError(t, f.users.HideChat(f.ctx, "alice", "alice_bob", "1234"))

	var hidden models.HiddenChat
	ok, err := f.store.GetInto(f.ctx, repositories.HiddenChatPath("alice", "alice_bob"), &hidden)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(hidden.PIN, "$2"))

	valid, err := f.users.VerifyPin(f.ctx, "alice", "alice_bob", "1234")
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = f.users.VerifyPin(f.ctx, "alice", "alice_bob", "0000")
	require.NoError(t, err)
	assert.False(t, valid)

	user, err := f.users.GetByID(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.HiddenChat{}, user.HiddenChats["alice_bob"])

	require.NoError(t, f.users.UnhideChat(f.ctx, "alice", "alice_bob"))
	_, err = f.users.VerifyPin(f.ctx, "alice", "alice_bob", "1234")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyPinAcceptsLegacyPlaintext(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(f.ctx, repositories.HiddenChatPath("bob", "c1"), map[string]any{"pin": "4321"}))

	valid, err := f.users.VerifyPin(f.ctx, "bob", "c1", "4321")
	require.NoError(t, err)
	assert.True(t, valid)
	valid, err = f.users.VerifyPin(f.ctx, "bob", "c1", "432")
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestChatListAndDelete(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice", "")
	f.addUser(t, "bob", "", "")

	list, err := f.users.ChatList(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ChatListEntry{Username: "Alice", Status: models.StatusOffline}, list["alice"])
	assert.Equal(t, "bob", list["bob"].Username)

	require.NoError(t, f.users.Delete(f.ctx, "bob"))
	assert.ErrorIs(t, f.users.Delete(f.ctx, "bob"), ErrNotFound)
	_, err = f.users.GetByID(f.ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeviceTokens(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "", "")

	assert.ErrorIs(t, f.users.RegisterDeviceToken(f.ctx, "alice", ""), ErrInvalidArgument)
	assert.ErrorIs(t, f.users.RegisterDeviceToken(f.ctx, "alice", "bad.token"), ErrInvalidArgument)
	require.NoError(t, f.users.RegisterDeviceToken(f.ctx, "alice", "tok:1"))

	tokens, err := f.userRepo.DeviceTokens(f.ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"tok:1"}, tokens)

	user, err := f.users.GetByID(f.ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, user.DeviceTokens)

	require.NoError(t, f.users.RemoveDeviceToken(f.ctx, "alice", "tok:1"))
	tokens, err = f.userRepo.DeviceTokens(f.ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
