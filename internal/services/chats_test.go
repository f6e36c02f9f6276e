package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
)

func TestCreateIndividualAliceBobScenario(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "Alice", "Liddell")
	f.addUser(t, "bob", "Bob", "")

	chat, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", chat.ID)
	assert.Equal(t, models.ChatIndividual, chat.Type)
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)

	msgs, err := f.messages.List(f.ctx, "alice_bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "alice", msgs[0].Sender)

	for _, uid := range []string{"alice", "bob"} {
		summary, ok := f.summary(t, uid, "alice_bob")
		require.True(t, ok, uid)
		assert.Equal(t, "hi", summary.LastMessage)
		assert.Equal(t, "alice", summary.LastUser)
	}

	aliceView, _ := f.summary(t, "alice", "alice_bob")
	bobView, _ := f.summary(t, "bob", "alice_bob")
	assert.Equal(t, "Bob", aliceView.Name)
	assert.Equal(t, "Alice Liddell", bobView.Title)
	assert.Equal(t, 0, aliceView.UnreadCount)
	assert.Equal(t, 1, bobView.UnreadCount)
}

func TestCreateIndividualIsIdempotentAndSymmetric(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "", "")
	f.addUser(t, "bob", "", "")

	first, err := f.chats.CreateIndividual(f.ctx, "bob", "alice", "first")
	require.NoError(t, err)
	second, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "second")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "alice_bob", first.ID)

	msgs, err := f.messages.List(f.ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestCreateIndividualValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.chats.CreateIndividual(f.ctx, "alice", "alice", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.chats.CreateIndividual(f.ctx, "", "bob", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.chats.CreateIndividual(f.ctx, "alice", "b.ob", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCreateIndividualWithoutProfilesUsesUnknownName(t *testing.T) {
	f := newFixture(t)

	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "")
	require.NoError(t, err)

	summary, ok := f.summary(t, "alice", "alice_bob")
	require.True(t, ok)
	assert.Equal(t, models.UnknownUsername, summary.Name)
	assert.Empty(t, summary.LastMessage)
}

func TestCreateGroup(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "", "")
	f.addUser(t, "bob", "", "")

	chat, err := f.chats.CreateGroup(f.ctx, NewGroup{
		Participants:   []string{"bob", "bob", ""},
		CreatorID:      "alice",
		Title:          "  weekend  ",
		Avatar:         "https://cdn.example.com/g.png",
		InitialMessage: "welcome",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ChatGroup, chat.Type)
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)
	assert.Equal(t, "weekend", chat.Title)
	assert.Equal(t, map[string]bool{"alice": true}, chat.Admin)
	assert.NotEmpty(t, chat.LastMessageID)

	bobView, ok := f.summary(t, "bob", chat.ID)
	require.True(t, ok)
	assert.Equal(t, "weekend", bobView.Name)
	assert.Equal(t, "https://cdn.example.com/g.png", bobView.Avatar)
	assert.Equal(t, "welcome", bobView.LastMessage)
	assert.Equal(t, 1, bobView.UnreadCount)

	_, err = f.chats.CreateGroup(f.ctx, NewGroup{CreatorID: "alice", Title: " "})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteGroupCascades(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	require.NoError(t, f.users.HideChat(f.ctx, "carol", chat.ID, "1234"))

	assert.ErrorIs(t, f.chats.DeleteGroup(f.ctx, chat.ID, "bob"), ErrPermissionDenied)
	require.NoError(t, f.chats.DeleteGroup(f.ctx, chat.ID, "alice"))

	_, err := f.chats.GetByID(f.ctx, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, uid := range []string{"alice", "bob", "carol"} {
		_, ok := f.summary(t, uid, chat.ID)
		assert.False(t, ok, uid)
	}
	user, err := f.userRepo.GetUser(f.ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, user.HiddenChats)
}

func TestCreatorSelfRemovalDeletesGroup(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)

	require.NoError(t, f.chats.RemoveUser(f.ctx, chat.ID, "alice", "alice"))

	_, err := f.chats.GetByID(f.ctx, chat.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, uid := range []string{"alice", "bob", "carol"} {
		_, ok := f.summary(t, uid, chat.ID)
		assert.False(t, ok, uid)
	}
}

func TestRemoveUserRules(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	require.NoError(t, f.chats.AddUser(f.ctx, chat.ID, "dave", "alice"))
	require.NoError(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "alice", "dave", RoleAdmin))

	// bob and dave are admins, carol is a member
	assert.ErrorIs(t, f.chats.RemoveUser(f.ctx, chat.ID, "dave", "bob"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.RemoveUser(f.ctx, chat.ID, "alice", "bob"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.RemoveUser(f.ctx, chat.ID, "bob", "carol"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.RemoveUser(f.ctx, chat.ID, "mallory", "alice"), ErrNotFound)

	require.NoError(t, f.chats.RemoveUser(f.ctx, chat.ID, "carol", "bob"))
	require.NoError(t, f.chats.RemoveUser(f.ctx, chat.ID, "dave", "dave"))

	got, err := f.chats.GetByID(f.ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, got.Participants)
	assert.False(t, got.Admin["dave"])
	_, ok := f.summary(t, "carol", chat.ID)
	assert.False(t, ok)

	require.NoError(t, f.chats.RemoveUser(f.ctx, chat.ID, "bob", "alice"))
	got, err = f.chats.GetByID(f.ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, got.Participants)
}

func TestUpdateUserRole(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)

	got, err := f.chats.GetByID(f.ctx, chat.ID)
	require.NoError(t, err)
	assert.True(t, got.Admin["bob"])

	assert.ErrorIs(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "bob", "carol", RoleAdmin), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "alice", "carol", "owner"), ErrInvalidArgument)
	assert.ErrorIs(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "alice", "alice", RoleMember), ErrInvalidArgument)
	assert.ErrorIs(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "alice", "dave", RoleAdmin), ErrNotFound)

	require.NoError(t, f.chats.UpdateUserRole(f.ctx, chat.ID, "alice", "bob", RoleMember))
	got, err = f.chats.GetByID(f.ctx, chat.ID)
	require.NoError(t, err)
	assert.False(t, got.Admin["bob"])
	assert.True(t, got.IsAdmin("alice"))
}

func TestAddUser(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	_, err := f.messages.Append(f.ctx, chat.ID, "carol", "latest news", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.chats.AddUser(f.ctx, chat.ID, "dave", "carol"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.AddUser(f.ctx, chat.ID, "carol", "alice"), ErrInvalidArgument)
	assert.ErrorIs(t, f.chats.AddUser(f.ctx, chat.ID, "nobody", "alice"), ErrNotFound)

	require.NoError(t, f.chats.AddUser(f.ctx, chat.ID, "dave", "bob"))
	summary, ok := f.summary(t, "dave", chat.ID)
	require.True(t, ok)
	assert.Equal(t, "latest news", summary.LastMessage)
	assert.Equal(t, "carol", summary.LastUser)
	assert.Equal(t, 0, summary.UnreadCount)
	assert.Equal(t, "team", summary.Title)

	member, err := f.chats.IsParticipant(f.ctx, chat.ID, "dave")
	require.NoError(t, err)
	assert.True(t, member)
}

func TestUpdateGroupInfo(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	title := "renamed"
	desc := "weekly sync"

	assert.ErrorIs(t, f.chats.UpdateGroupInfo(f.ctx, chat.ID, models.GroupUpdate{Title: &title}, "carol"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.UpdateGroupInfo(f.ctx, chat.ID, models.GroupUpdate{}, "alice"), ErrInvalidArgument)

	require.NoError(t, f.chats.UpdateGroupInfo(f.ctx, chat.ID, models.GroupUpdate{Title: &title, Description: &desc}, "bob"))

	got, err := f.chats.GetByID(f.ctx, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "weekly sync", got.Description)
	for _, uid := range got.Participants {
		summary, ok := f.summary(t, uid, chat.ID)
		require.True(t, ok)
		assert.Equal(t, "renamed", summary.Title)
		assert.Equal(t, "renamed", summary.Name)
	}

	f.events.AssertCalled(t, "Publish", mock.Anything, fanout.TopicChats,
		models.ChatsChanged{ChatID: chat.ID, FieldsUpdated: []string{"title", "description"}})
}

func TestUpdateGroupInfoLeavesMissingSummariesAlone(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	require.NoError(t, f.store.Delete(f.ctx, repositories.SummaryPath("carol", chat.ID)))

	title := "renamed"
	require.NoError(t, f.chats.UpdateGroupInfo(f.ctx, chat.ID, models.GroupUpdate{Title: &title}, "alice"))

	_, ok := f.summary(t, "carol", chat.ID)
	assert.False(t, ok)
	bobView, ok := f.summary(t, "bob", chat.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", bobView.Title)
	assert.Equal(t, models.ChatGroup, bobView.Type)
}

func TestGroupOperationsRejectIndividualChats(t *testing.T) {
	f := newFixture(t)
	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.chats.DeleteGroup(f.ctx, "alice_bob", "alice"), ErrInvalidArgument)
	assert.ErrorIs(t, f.chats.AddUser(f.ctx, "alice_bob", "carol", "alice"), ErrInvalidArgument)
}

func TestDeleteChat(t *testing.T) {
	f := newFixture(t)
	chat := f.group(t)
	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "hello")
	require.NoError(t, err)

	assert.ErrorIs(t, f.chats.DeleteChat(f.ctx, "alice_bob", "carol"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.DeleteChat(f.ctx, chat.ID, "bob"), ErrPermissionDenied)
	assert.ErrorIs(t, f.chats.DeleteChat(f.ctx, "missing", "bob"), ErrNotFound)

	require.NoError(t, f.chats.DeleteChat(f.ctx, "alice_bob", "bob"))
	_, ok := f.summary(t, "alice", "alice_bob")
	assert.False(t, ok)
	_, err = f.messages.List(f.ctx, "alice_bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkRead(t *testing.T) {
	f := newFixture(t)
	_, err := f.chats.CreateIndividual(f.ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	assert.ErrorIs(t, f.chats.MarkRead(f.ctx, "alice_bob", "carol"), ErrNotFound)
	require.NoError(t, f.chats.MarkRead(f.ctx, "alice_bob", "bob"))

	summary, _ := f.summary(t, "bob", "alice_bob")
	assert.Equal(t, 0, summary.UnreadCount)
	assert.Equal(t, "hi", summary.LastMessage)
}
