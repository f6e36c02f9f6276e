package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/services"
)

// FriendHandler manages friend requests of the requester.
type FriendHandler struct {
	friends services.Friends
}

func NewFriendHandler(friends services.Friends) *FriendHandler {
	return &FriendHandler{friends: friends}
}

func (h *FriendHandler) ListFriends(c *gin.Context) {
	friends, err := h.friends.ListFriends(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

func (h *FriendHandler) ListRequests(c *gin.Context) {
	requests, err := h.friends.ListRequests(c.Request.Context(), userIDFromContext(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *FriendHandler) SendRequest(c *gin.Context) {
	var req struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.friends.SendRequest(c.Request.Context(), userIDFromContext(c), req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "pending"})
}

func (h *FriendHandler) Accept(c *gin.Context) {
	var req struct {
		From string `json:"from" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.friends.Accept(c.Request.Context(), userIDFromContext(c), req.From); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// Reject drops the pending request named by ?from=.
func (h *FriendHandler) Reject(c *gin.Context) {
	from := c.Query("from")
	if from == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from is required"})
		return
	}
	if err := h.friends.Reject(c.Request.Context(), userIDFromContext(c), from); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
