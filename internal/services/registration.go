package services

import (
	"context"
	"log"
	"net/mail"
	"strings"

	"chat-sync-service/internal/identity"
)

const minPasswordLength = 6

// Registration covers sign-up and sign-in against the identity provider.
type Registration interface {
	Register(ctx context.Context, email, password string) (identity.Account, error)
	SendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (identity.Account, error)
	Logout(ctx context.Context, email string) error
	GoogleLogin(ctx context.Context, idToken string) (identity.Claims, error)
}

type RegistrationService struct {
	gateway identity.Gateway
	users   UserDirectory
}

func NewRegistrationService(gateway identity.Gateway, users UserDirectory) *RegistrationService {
	return &RegistrationService{gateway: gateway, users: users}
}

func (s *RegistrationService) Register(ctx context.Context, email, password string) (identity.Account, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return identity.Account{}, invalid("invalid email")
	}
	if len(password) < minPasswordLength {
		return identity.Account{}, invalid("password must be at least %d characters", minPasswordLength)
	}

	account, err := s.gateway.CreateUnverifiedAccount(ctx, email, password)
	if err != nil {
		return identity.Account{}, err
	}
	if _, _, err := s.users.InitializeIfMissing(ctx, account.ID, account.Email, account.DisplayName, account.PhotoURL); err != nil {
		return identity.Account{}, err
	}
	return account, nil
}

func (s *RegistrationService) SendVerification(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email is required")
	}
	return s.gateway.SendVerificationEmail(ctx, strings.TrimSpace(email))
}

// Login signs in with email and password and makes sure a profile exists.
func (s *RegistrationService) Login(ctx context.Context, email, password string) (identity.Account, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return identity.Account{}, invalid("email and password are required")
	}
	account, err := s.gateway.PasswordLogin(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return identity.Account{}, err
	}
	if _, created, err := s.users.InitializeIfMissing(ctx, account.ID, account.Email, account.DisplayName, ""); err != nil {
		return identity.Account{}, err
	} else if created {
		log.Printf("profile initialized on login uid=%s", account.ID)
	}
	return account, nil
}

func (s *RegistrationService) Logout(ctx context.Context, email string) error {
	if strings.TrimSpace(email) == "" {
		return invalid("email is required")
	}
	account, err := s.gateway.LookupByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	return s.gateway.RevokeSession(ctx, account.ID)
}

func (s *RegistrationService) GoogleLogin(ctx context.Context, idToken string) (identity.Claims, error) {
	if idToken == "" {
		return identity.Claims{}, invalid("idToken is required")
	}
	claims, err := s.gateway.VerifyFederatedToken(ctx, idToken)
	if err != nil {
		return identity.Claims{}, err
	}
	if _, _, err := s.users.InitializeIfMissing(ctx, claims.UID, claims.Email, claims.Name, claims.Picture); err != nil {
		return identity.Claims{}, err
	}
	return claims, nil
}

var _ Registration = (*RegistrationService)(nil)
