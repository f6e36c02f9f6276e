package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndividualChatIDIsSymmetric(t *testing.T) {
	assert.Equal(t, "alice_bob", IndividualChatID("alice", "bob"))
	assert.Equal(t, "alice_bob", IndividualChatID("bob", "alice"))
}

func TestIsAdminIncludesCreator(t *testing.T) {
	chat := Chat{CreatorID: "alice", Admin: map[string]bool{"bob": true}}
	assert.True(t, chat.IsAdmin("alice"))
	assert.True(t, chat.IsAdmin("bob"))
	assert.False(t, chat.IsAdmin("carol"))
	assert.False(t, chat.IsAdmin(""))
}

func TestDisplayNameFallbacks(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}.DisplayName())
	assert.Equal(t, "ada", User{Username: "ada"}.DisplayName())
	assert.Equal(t, "ada@example.com", User{Email: "ada@example.com"}.DisplayName())
	assert.Equal(t, UnknownUsername, User{}.DisplayName())
}

func TestPublicHidesPins(t *testing.T) {
	u := User{HiddenChats: map[string]HiddenChat{"c1": {PIN: "$2a$hash"}}, DeviceTokens: map[string]bool{"t": true}}
	public := u.Public()
	assert.Equal(t, "", public.HiddenChats["c1"].PIN)
	assert.Nil(t, public.DeviceTokens)
	assert.Equal(t, "$2a$hash", u.HiddenChats["c1"].PIN)
}

func TestPreviewForImageOnlyMessage(t *testing.T) {
	assert.Equal(t, ImagePreview, Message{Image: "https://cdn/x.png"}.Preview())
	assert.Equal(t, "hi", Message{Content: "hi", Image: "x"}.Preview())
}
