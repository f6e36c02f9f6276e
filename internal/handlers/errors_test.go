package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"chat-sync-service/internal/identity"
	"chat-sync-service/internal/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: chat c1", services.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: creator only", services.ErrPermissionDenied), http.StatusForbidden},
		{fmt.Errorf("%w: empty title", services.ErrInvalidArgument), http.StatusBadRequest},
		{identity.ErrAlreadyExists, http.StatusConflict},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized},
		{identity.ErrAccountNotFound, http.StatusNotFound},
		{errors.New("store unavailable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, statusFor(tc.err), tc.err.Error())
	}
}
