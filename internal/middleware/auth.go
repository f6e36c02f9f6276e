package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-sync-service/internal/identity"
)

const (
	// UserIDKey is the gin context key holding the authenticated uid.
	UserIDKey = "userID"

	userIDHeader = "X-User-ID"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization")
	ErrInvalidAuthorization = errors.New("invalid authorization header")
)

// Authenticator resolves the caller of a request.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// TokenAuthenticator verifies a bearer token. Websocket clients may pass it as ?token=.
type TokenAuthenticator struct {
	verifier identity.TokenVerifier
}

func NewTokenAuthenticator(verifier identity.TokenVerifier) *TokenAuthenticator {
	return &TokenAuthenticator{verifier: verifier}
}

func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err != nil {
		return "", err
	}
	return a.verifier.VerifyIDToken(r.Context(), token)
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if token := r.URL.Query().Get("token"); token != "" {
			return token, nil
		}
		return "", ErrMissingAuthorization
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidAuthorization
	}
	return parts[1], nil
}

// HeaderAuthenticator trusts the X-User-ID header set by an upstream gateway.
type HeaderAuthenticator struct{}

func (HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	uid := strings.TrimSpace(r.Header.Get(userIDHeader))
	if uid == "" {
		uid = r.URL.Query().Get("uid")
	}
	if uid == "" {
		return "", ErrMissingAuthorization
	}
	return uid, nil
}

// AuthMiddleware rejects unauthenticated requests and stores the uid under UserIDKey.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.Authenticate(c.Request)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrMissingAuthorization) || errors.Is(err, ErrInvalidAuthorization) {
				msg = err.Error()
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}
