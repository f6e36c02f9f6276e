package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/services"
)

// MessageHandler exposes the message log of a chat to its participants.
type MessageHandler struct {
	chats    services.ChatRegistry
	messages services.MessageLog
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(chats services.ChatRegistry, messages services.MessageLog) *MessageHandler {
	return &MessageHandler{chats: chats, messages: messages}
}

func (h *MessageHandler) ListMessages(c *gin.Context) {
	chatID := c.Param("chatId")
	if !h.requireParticipant(c, chatID) {
		return
	}

	msgs, err := h.messages.List(c.Request.Context(), chatID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *MessageHandler) GetMessage(c *gin.Context) {
	chatID := c.Param("chatId")
	if !h.requireParticipant(c, chatID) {
		return
	}

	msg, err := h.messages.GetByID(c.Request.Context(), chatID, c.Param("messageId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// PostMessage appends a message sent by the requester.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
		Image   string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chatID := c.Param("chatId")
	if !h.requireParticipant(c, chatID) {
		return
	}

	msg, err := h.messages.Append(c.Request.Context(), chatID, userIDFromContext(c), req.Content, req.Image)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateMessage edits the content of a message. Sender only.
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chatID := c.Param("chatId")
	if _, ok := h.ownMessage(c, chatID); !ok {
		return
	}

	msg, err := h.messages.Update(c.Request.Context(), chatID, c.Param("messageId"), req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage replaces the message with a tombstone. Sender only.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	chatID := c.Param("chatId")
	if _, ok := h.ownMessage(c, chatID); !ok {
		return
	}

	msg, err := h.messages.SoftDelete(c.Request.Context(), chatID, c.Param("messageId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

func (h *MessageHandler) requireParticipant(c *gin.Context, chatID string) bool {
	chat, err := h.chats.GetByID(c.Request.Context(), chatID)
	if err != nil {
		respondError(c, err)
		return false
	}
	if !chat.HasParticipant(userIDFromContext(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return false
	}
	return true
}

func (h *MessageHandler) ownMessage(c *gin.Context, chatID string) (models.Message, bool) {
	if !h.requireParticipant(c, chatID) {
		return models.Message{}, false
	}
	msg, err := h.messages.GetByID(c.Request.Context(), chatID, c.Param("messageId"))
	if err != nil {
		respondError(c, err)
		return models.Message{}, false
	}
	if msg.Sender != userIDFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the sender can change a message"})
		return models.Message{}, false
	}
	return msg, true
}
