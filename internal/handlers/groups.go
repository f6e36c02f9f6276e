package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/services"
	"chat-sync-service/internal/telemetry"
)

// GroupHandler manages group creation and membership.
type GroupHandler struct {
	chats services.ChatRegistry
	audit *telemetry.AuditEmitter
}

// NewGroupHandler builds a GroupHandler.
func NewGroupHandler(chats services.ChatRegistry, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{chats: chats, audit: audit}
}

// CreateGroup creates a group owned by the requester.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req struct {
		Participants   []string `json:"participants"`
		Title          string   `json:"title" binding:"required"`
		Description    string   `json:"description"`
		Avatar         string   `json:"avatar"`
		InitialMessage string   `json:"initialMessage"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chat, err := h.chats.CreateGroup(c.Request.Context(), services.NewGroup{
		Participants:   req.Participants,
		CreatorID:      userIDFromContext(c),
		Title:          req.Title,
		Description:    req.Description,
		Avatar:         req.Avatar,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat)
}

// UpdateGroupInfo patches the fields present in the body.
func (h *GroupHandler) UpdateGroupInfo(c *gin.Context) {
	var update models.GroupUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		badRequest(c, err)
		return
	}
	if update.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}

	if err := h.chats.UpdateGroupInfo(c.Request.Context(), c.Param("chatId"), update, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *GroupHandler) UpdateUserRole(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
		Role   string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	chatID := c.Param("chatId")
	if err := h.chats.UpdateUserRole(c.Request.Context(), chatID, userIDFromContext(c), req.UserID, req.Role); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "role_changed", "group", map[string]string{
		"chat_id": chatID,
		"target":  req.UserID,
		"role":    req.Role,
	})
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *GroupHandler) RemoveUser(c *gin.Context) {
	chatID, target := c.Param("chatId"), c.Param("userId")
	if err := h.chats.RemoveUser(c.Request.Context(), chatID, target, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "member_removed", "group", map[string]string{"chat_id": chatID, "target": target})
	c.Status(http.StatusNoContent)
}

func (h *GroupHandler) AddUser(c *gin.Context) {
	if err := h.chats.AddUser(c.Request.Context(), c.Param("chatId"), c.Param("userId"), userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "added"})
}

// DeleteGroup is creator only.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	chatID := c.Param("chatId")
	if err := h.chats.DeleteGroup(c.Request.Context(), chatID, userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "group_deleted", "group", map[string]string{"chat_id": chatID})
	c.Status(http.StatusNoContent)
}
