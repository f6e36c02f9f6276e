package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/services"
	"chat-sync-service/internal/telemetry"
)

// AuthHandler exposes account registration and sign-in.
type AuthHandler struct {
	registration services.Registration
	audit        *telemetry.AuditEmitter
}

func NewAuthHandler(registration services.Registration, audit *telemetry.AuditEmitter) *AuthHandler {
	return &AuthHandler{registration: registration, audit: audit}
}

type credentialsRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an unverified account and its profile.
func (h *AuthHandler) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.registration.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func (h *AuthHandler) SendVerification(c *gin.Context) {
	if err := h.registration.SendVerification(c.Request.Context(), c.Query("email")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verification email sent"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	account, err := h.registration.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// Logout revokes every refresh token of the account.
func (h *AuthHandler) Logout(c *gin.Context) {
	email := c.Query("email")
	if err := h.registration.Logout(c.Request.Context(), email); err != nil {
		respondError(c, err)
		return
	}
	emitAudit(c, h.audit, "logout", "account", map[string]string{"email": email})
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req struct {
		IDToken string `json:"idToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	claims, err := h.registration.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claims)
}
