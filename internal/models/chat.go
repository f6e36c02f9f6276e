package models

import (
	"sort"
	"strings"
)

// ChatType distinguishes one-to-one chats from groups.
type ChatType string

const (
	ChatIndividual ChatType = "individual"
	ChatGroup      ChatType = "group"
)

// Chat is the record stored at chats/{id}.
type Chat struct {
	ID            string             `json:"id"`
	Type          ChatType           `json:"type"`
	Participants  []string           `json:"participants"`
	Title         string             `json:"title,omitempty"`
	Description   string             `json:"description,omitempty"`
	Avatar        string             `json:"avatar,omitempty"`
	CreatorID     string             `json:"creatorId,omitempty"`
	Admin         map[string]bool    `json:"admin,omitempty"`
	Messages      map[string]Message `json:"messages,omitempty"`
	LastMessageID string             `json:"lastMessageId,omitempty"`
	CreatedAt     int64              `json:"createdAt,omitempty"`
}

// HasParticipant reports whether uid belongs to the chat.
func (c Chat) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// IsAdmin reports whether uid may manage the group. The creator always can.
func (c Chat) IsAdmin(uid string) bool {
	return uid != "" && (uid == c.CreatorID || c.Admin[uid])
}

// Partner returns the other participant of an individual chat.
func (c Chat) Partner(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}

// IndividualChatID is the deterministic id of the chat between a and b.
func IndividualChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// ChatSummary is the per-user denormalized view kept at users/{uid}/chatUser/{chatId}.
type ChatSummary struct {
	LastMessage string   `json:"lastMessage"`
	LastUser    string   `json:"lastUser"`
	Timestamp   int64    `json:"timestamp"`
	UnreadCount int      `json:"unreadCount"`
	Title       string   `json:"title,omitempty"`
	Avatar      string   `json:"avatar,omitempty"`
	Type        ChatType `json:"type"`
	Name        string   `json:"name,omitempty"`
}

// GroupUpdate carries the optional group fields of an info update.
type GroupUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar"`
}

// Empty reports whether no field was supplied.
func (u GroupUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Avatar == nil
}
