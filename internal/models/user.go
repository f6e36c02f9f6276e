package models

import "strings"

const (
	StatusOnline  = "online"
	StatusOffline = "offline"

	FriendActive   = "active"
	RequestPending = "pending"

	UnknownUsername = "Unknown User"
)

// User is the profile stored at users/{uid}.
type User struct {
	UID            string                 `json:"uid,omitempty"`
	Username       string                 `json:"username,omitempty"`
	Email          string                 `json:"email,omitempty"`
	Status         string                 `json:"status,omitempty"`
	Avatar         string                 `json:"avatar,omitempty"`
	Bio            string                 `json:"bio,omitempty"`
	FirstName      string                 `json:"firstName,omitempty"`
	LastName       string                 `json:"lastName,omitempty"`
	Friends        map[string]string      `json:"friends,omitempty"`
	FriendRequests map[string]string      `json:"friendRequests,omitempty"`
	HiddenChats    map[string]HiddenChat  `json:"hiddenChats,omitempty"`
	ChatUser       map[string]ChatSummary `json:"chatUser,omitempty"`
	DeviceTokens   map[string]bool        `json:"deviceTokens,omitempty"`
}

// HiddenChat holds the bcrypt hash of the PIN protecting a hidden chat.
type HiddenChat struct {
	PIN string `json:"pin"`
}

// DisplayName picks the best human readable name available.
func (u User) DisplayName() string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return UnknownUsername
}

// Public strips secrets before a profile leaves the service.
func (u User) Public() User {
	if len(u.HiddenChats) > 0 {
		hidden := make(map[string]HiddenChat, len(u.HiddenChats))
		for id := range u.HiddenChats {
			hidden[id] = HiddenChat{}
		}
		u.HiddenChats = hidden
	}
	u.DeviceTokens = nil
	return u
}

// ChatListEntry is the compact user view used by the chat list screen.
type ChatListEntry struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Status   string `json:"status,omitempty"`
}
