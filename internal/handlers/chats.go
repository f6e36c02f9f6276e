package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/services"
	"chat-sync-service/internal/telemetry"
)

// ChatHandler manages chat endpoints shared by individual chats and groups.
type ChatHandler struct {
	chats services.ChatRegistry
	users services.UserDirectory
	audit *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chats services.ChatRegistry, users services.UserDirectory, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chats: chats, users: users, audit: audit}
}

// ListChats returns the chats the authenticated user participates in.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := userIDFromContext(c)

	all, err := h.chats.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	chats := make([]models.Chat, 0, len(all))
	for _, chat := range all {
		if chat.HasParticipant(userID) {
			chat.Messages = nil
			chats = append(chats, chat)
		}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *ChatHandler) GetChat(c *gin.Context) {
	chat, ok := h.participantChat(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, chat)
}

// CreateIndividual creates or returns the chat between the requester and another user.
func (h *ChatHandler) CreateIndividual(c *gin.Context) {
	var req struct {
		UserID         string `json:"userId" binding:"required"`
		InitialMessage string `json:"initialMessage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chat, err := h.chats.CreateIndividual(c.Request.Context(), userIDFromContext(c), req.UserID, req.InitialMessage)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chat)
}

// DeleteChat removes the chat for every participant.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	chatID := c.Param("chatId")
	if err := h.chats.DeleteChat(c.Request.Context(), chatID, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "chat_deleted", "chat", map[string]string{"chat_id": chatID})
	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) HideChat(c *gin.Context) {
	var req struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.HideChat(c.Request.Context(), userIDFromContext(c), c.Param("chatId"), req.PIN); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "hidden"})
}

func (h *ChatHandler) UnhideChat(c *gin.Context) {
	if err := h.users.UnhideChat(c.Request.Context(), userIDFromContext(c), c.Param("chatId")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "visible"})
}

// VerifyPin answers whether the PIN unlocks a hidden chat.
func (h *ChatHandler) VerifyPin(c *gin.Context) {
	var req struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ok, err := h.users.VerifyPin(c.Request.Context(), userIDFromContext(c), c.Param("chatId"), req.PIN)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": ok})
}

// participantChat loads :chatId and writes 403 unless the requester is a member.
func (h *ChatHandler) participantChat(c *gin.Context) (models.Chat, bool) {
	chat, err := h.chats.GetByID(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		respondError(c, err)
		return models.Chat{}, false
	}
	if !chat.HasParticipant(userIDFromContext(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return models.Chat{}, false
	}
	return chat, true
}
