package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/treestore"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository abstracts typed reads over the users tree.
type UserRepository interface {
	GetUser(ctx context.Context, uid string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetSummary(ctx context.Context, uid, chatID string) (models.ChatSummary, bool, error)
	DeviceTokens(ctx context.Context, uid string) ([]string, error)
}

// UserRepo reads profiles from a tree store.
type UserRepo struct {
	store treestore.Store
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(store treestore.Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) GetUser(ctx context.Context, uid string) (models.User, error) {
	var user models.User
	ok, err := r.store.GetInto(ctx, UserPath(uid), &user)
	if err != nil {
		return models.User{}, fmt.Errorf("get user %s: %w", uid, err)
	}
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	user.UID = uid
	return user, nil
}

func (r *UserRepo) ListUsers(ctx context.Context) ([]models.User, error) {
	var byID map[string]models.User
	if _, err := r.store.GetInto(ctx, UsersRoot, &byID); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]models.User, 0, len(byID))
	for uid, user := range byID {
		user.UID = uid
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UID < users[j].UID })
	return users, nil
}

func (r *UserRepo) GetSummary(ctx context.Context, uid, chatID string) (models.ChatSummary, bool, error) {
	var summary models.ChatSummary
	ok, err := r.store.GetInto(ctx, SummaryPath(uid, chatID), &summary)
	if err != nil {
		return models.ChatSummary{}, false, fmt.Errorf("get summary %s/%s: %w", uid, chatID, err)
	}
	return summary, ok, nil
}

func (r *UserRepo) DeviceTokens(ctx context.Context, uid string) ([]string, error) {
	var tokens map[string]bool
	if _, err := r.store.GetInto(ctx, UserFieldPath(uid, "deviceTokens"), &tokens); err != nil {
		return nil, fmt.Errorf("get device tokens of %s: %w", uid, err)
	}
	out := make([]string, 0, len(tokens))
	for token, active := range tokens {
		if active {
			out = append(out, token)
		}
	}
	sort.Strings(out)
	return out, nil
}

var _ UserRepository = (*UserRepo)(nil)
