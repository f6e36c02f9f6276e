package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/googleapi"
	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	oauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	verificationSubject = "Verify Your Email"
	verificationBody    = "Click the link below to verify your email:\n%s"
)

// FirebaseGateway implements Gateway with the Firebase Admin SDK and the Identity Toolkit REST API.
type FirebaseGateway struct {
	auth           *auth.Client
	toolkit        *identitytoolkit.Service
	tokeninfo      *oauth2.Service
	mailer         Mailer
	googleClientID string
}

// NewFirebaseGateway builds the gateway. apiKey is the web API key used for password sign-in.
// googleClientID enables the raw Google ID token fallback when non-empty.
func NewFirebaseGateway(ctx context.Context, client *auth.Client, apiKey, googleClientID string, mailer Mailer) (*FirebaseGateway, error) {
	toolkit, err := identitytoolkit.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit service: %w", err)
	}
	var tokeninfo *oauth2.Service
	if googleClientID != "" {
		tokeninfo, err = oauth2.NewService(ctx, option.WithoutAuthentication())
		if err != nil {
			return nil, fmt.Errorf("create oauth2 service: %w", err)
		}
	}
	if mailer == nil {
		mailer = NewLogMailer()
	}
	return &FirebaseGateway{
		auth:           client,
		toolkit:        toolkit,
		tokeninfo:      tokeninfo,
		mailer:         mailer,
		googleClientID: googleClientID,
	}, nil
}

func (g *FirebaseGateway) CreateUnverifiedAccount(ctx context.Context, email, password string) (Account, error) {
	params := (&auth.UserToCreate{}).
		Email(email).
		Password(password).
		EmailVerified(false)
	record, err := g.auth.CreateUser(ctx, params)
	if err != nil {
		if auth.IsEmailAlreadyExists(err) {
			return Account{}, ErrAlreadyExists
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return accountFromRecord(record), nil
}

func (g *FirebaseGateway) SendVerificationEmail(ctx context.Context, email string) error {
	record, err := g.auth.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("lookup %s: %w", email, err)
	}
	if record.EmailVerified {
		return ErrAlreadyVerified
	}

	link, err := g.auth.EmailVerificationLink(ctx, email)
	if err != nil {
		return fmt.Errorf("generate verification link: %w", err)
	}
	if err := g.mailer.Send(ctx, email, verificationSubject, fmt.Sprintf(verificationBody, link)); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (g *FirebaseGateway) PasswordLogin(ctx context.Context, email, password string) (Account, error) {
	resp, err := g.toolkit.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		if isCredentialError(err) {
			return Account{}, ErrInvalidCredentials
		}
		return Account{}, fmt.Errorf("password login: %w", err)
	}
	return Account{
		ID:          resp.LocalId,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		IDToken:     resp.IdToken,
	}, nil
}

func (g *FirebaseGateway) RevokeSession(ctx context.Context, accountID string) error {
	if err := g.auth.RevokeRefreshTokens(ctx, accountID); err != nil {
		if auth.IsUserNotFound(err) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("revoke session %s: %w", accountID, err)
	}
	return nil
}

func (g *FirebaseGateway) LookupByEmail(ctx context.Context, email string) (Account, error) {
	record, err := g.auth.GetUserByEmail(ctx, email)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("lookup %s: %w", email, err)
	}
	return accountFromRecord(record), nil
}

func (g *FirebaseGateway) VerifyIDToken(ctx context.Context, token string) (string, error) {
	verified, err := g.auth.VerifyIDToken(ctx, token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return verified.UID, nil
}

// VerifyFederatedToken accepts a Firebase ID token, or a Google ID token when a client id is configured.
func (g *FirebaseGateway) VerifyFederatedToken(ctx context.Context, token string) (Claims, error) {
	verified, err := g.auth.VerifyIDToken(ctx, token)
	if err == nil {
		return Claims{
			UID:     verified.UID,
			Email:   claimString(verified.Claims, "email"),
			Name:    claimString(verified.Claims, "name"),
			Picture: claimString(verified.Claims, "picture"),
		}, nil
	}
	if g.tokeninfo == nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	info, infoErr := g.tokeninfo.Tokeninfo().IdToken(token).Context(ctx).Do()
	if infoErr != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, infoErr)
	}
	if info.Audience != g.googleClientID || info.Email == "" {
		return Claims{}, ErrInvalidToken
	}

	account, lookupErr := g.LookupByEmail(ctx, info.Email)
	if errors.Is(lookupErr, ErrAccountNotFound) {
		record, createErr := g.auth.CreateUser(ctx, (&auth.UserToCreate{}).Email(info.Email).EmailVerified(info.VerifiedEmail))
		if createErr != nil {
			return Claims{}, fmt.Errorf("create federated account: %w", createErr)
		}
		log.Printf("federated account created uid=%s", record.UID)
		account = accountFromRecord(record)
	} else if lookupErr != nil {
		return Claims{}, lookupErr
	}

	return Claims{
		UID:     account.ID,
		Email:   account.Email,
		Name:    account.DisplayName,
		Picture: account.PhotoURL,
	}, nil
}

func accountFromRecord(record *auth.UserRecord) Account {
	if record == nil || record.UserInfo == nil {
		return Account{}
	}
	return Account{
		ID:            record.UID,
		Email:         record.Email,
		DisplayName:   record.DisplayName,
		PhotoURL:      record.PhotoURL,
		EmailVerified: record.EmailVerified,
	}
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

var credentialErrors = []string{"INVALID_LOGIN_CREDENTIALS", "INVALID_PASSWORD", "EMAIL_NOT_FOUND"}

func isCredentialError(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range credentialErrors {
		if strings.Contains(apiErr.Message, code) {
			return true
		}
		for _, item := range apiErr.Errors {
			if strings.Contains(item.Message, code) {
				return true
			}
		}
	}
	return false
}

var _ Gateway = (*FirebaseGateway)(nil)
