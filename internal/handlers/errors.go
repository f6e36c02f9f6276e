package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/identity"
	"chat-sync-service/internal/services"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound), errors.Is(err, identity.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrAlreadyExists), errors.Is(err, identity.ErrAlreadyVerified):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, identity.ErrInvalidToken):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes the mapped status. Internal failures are logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// requireSelf rejects requests acting on another user's profile.
func requireSelf(c *gin.Context, uid string) bool {
	if uid != userIDFromContext(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot act on another user"})
		return false
	}
	return true
}
