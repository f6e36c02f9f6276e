package models

// ChatsChanged is the delta published on the chats topic.
type ChatsChanged struct {
	ChatID        string   `json:"chatId"`
	FieldsUpdated []string `json:"fieldsUpdated"`
}

// MessageUpdateNotification points subscribers of messages.{chatId} at a changed message.
type MessageUpdateNotification struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}
