package identity

import (
	"context"
	"errors"
)

var (
	ErrAlreadyExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// Account is an identity provider account.
type Account struct {
	ID            string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName,omitempty"`
	PhotoURL      string `json:"photoURL,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
	IDToken       string `json:"idToken,omitempty"`
}

// Claims are the verified contents of a federated login token.
type Claims struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// TokenVerifier resolves a bearer token to an account id.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (string, error)
}

// Gateway is the external identity provider.
type Gateway interface {
	TokenVerifier
	CreateUnverifiedAccount(ctx context.Context, email, password string) (Account, error)
	SendVerificationEmail(ctx context.Context, email string) error
	PasswordLogin(ctx context.Context, email, password string) (Account, error)
	RevokeSession(ctx context.Context, accountID string) error
	LookupByEmail(ctx context.Context, email string) (Account, error)
	VerifyFederatedToken(ctx context.Context, token string) (Claims, error)
}
