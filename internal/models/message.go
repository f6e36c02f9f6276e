package models

// DeletedMessageContent replaces the content of soft-deleted messages.
const DeletedMessageContent = "Message deleted"

// ImagePreview is shown in summaries for messages carrying only an image.
const ImagePreview = "📷 Image"

// Message is stored at chats/{chatId}/messages/{id}.
type Message struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Read      bool   `json:"read"`
	Deleted   bool   `json:"deleted"`
}

// Preview is the text placed in chat summaries for this message.
func (m Message) Preview() string {
	if m.Content == "" && m.Image != "" {
		return ImagePreview
	}
	return m.Content
}
