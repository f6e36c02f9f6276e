package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestLogMailerNeverFails(t *testing.T) {
	assert.NoError(t, NewLogMailer().Send(context.Background(), "a@example.com", "subject", "body"))
}

func TestIsCredentialError(t *testing.T) {
	assert.True(t, isCredentialError(&googleapi.Error{Code: 400, Message: "INVALID_PASSWORD"}))
	assert.True(t, isCredentialError(fmt.Errorf("wrapped: %w", &googleapi.Error{
		Code:   400,
		Errors: []googleapi.ErrorItem{{Reason: "invalid", Message: "INVALID_LOGIN_CREDENTIALS"}},
	})))
	assert.False(t, isCredentialError(&googleapi.Error{Code: 500, Message: "INTERNAL"}))
	assert.False(t, isCredentialError(errors.New("EMAIL_NOT_FOUND")))
}

func TestClaimString(t *testing.T) {
	claims := map[string]interface{}{"email": "a@example.com", "age": 3}
	assert.Equal(t, "a@example.com", claimString(claims, "email"))
	assert.Equal(t, "", claimString(claims, "age"))
	assert.Equal(t, "", claimString(claims, "missing"))
}
