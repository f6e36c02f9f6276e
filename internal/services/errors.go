package services

import (
	"errors"
	"fmt"

	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidArgument  = errors.New("invalid argument")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func denied(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, fmt.Sprintf(format, args...))
}

func notFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// classify maps repository and store errors onto the service sentinels.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrChatNotFound),
		errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, treestore.ErrInvalidPath):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return err
}
