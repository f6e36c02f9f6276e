package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/services"
)

// UserHandler exposes profiles and per-user chat settings.
type UserHandler struct {
	users services.UserDirectory
	chats services.ChatRegistry
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(users services.UserDirectory, chats services.ChatRegistry) *UserHandler {
	return &UserHandler{users: users, chats: chats}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *UserHandler) ChatList(c *gin.Context) {
	entries, err := h.users.ChatList(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), c.Param("uid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpsertUser creates or merges the requester's own profile.
func (h *UserHandler) UpsertUser(c *gin.Context) {
	uid := c.Param("uid")
	if !requireSelf(c, uid) {
		return
	}
	var user models.User
	if err := c.ShouldBindJSON(&user); err != nil {
		badRequest(c, err)
		return
	}

	saved, err := h.users.Upsert(c.Request.Context(), uid, user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *UserHandler) UpdateStatus(c *gin.Context) {
	uid := c.Param("uid")
	if !requireSelf(c, uid) {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.UpdateStatus(c.Request.Context(), uid, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

func (h *UserHandler) UpdateBio(c *gin.Context) {
	uid := c.Param("uid")
	if !requireSelf(c, uid) {
		return
	}
	var req struct {
		Bio string `json:"bio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.UpdateBio(c.Request.Context(), uid, req.Bio); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bio": req.Bio})
}

// UpdateProfile changes the requester's name and avatar.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Avatar    string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userIDFromContext(c), services.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Avatar:    req.Avatar,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) MarkChatAsRead(c *gin.Context) {
	if err := h.chats.MarkRead(c.Request.Context(), c.Param("chatId"), userIDFromContext(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	uid := c.Param("uid")
	if !requireSelf(c, uid) {
		return
	}
	if err := h.users.Delete(c.Request.Context(), uid); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type deviceTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *UserHandler) RegisterDeviceToken(c *gin.Context) {
	uid := c.Param("uid")
	if !requireSelf(c, uid) {
		return
	}
	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.RegisterDeviceToken(c.Request.Context(), uid, req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

func (h *UserHandler) RemoveDeviceToken(c *gin.Context) {
	uid := c.Param("uid")
	if !requireSelf(c, uid) {
		return
	}
	var req deviceTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.users.RemoveDeviceToken(c.Request.Context(), uid, req.Token); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
