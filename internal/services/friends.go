package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

// Friends manages friend requests and friendships.
type Friends interface {
	SendRequest(ctx context.Context, fromID, toID string) error
	Accept(ctx context.Context, uid, fromID string) error
	Reject(ctx context.Context, uid, fromID string) error
	ListFriends(ctx context.Context, uid string) ([]models.User, error)
	ListRequests(ctx context.Context, uid string) ([]models.User, error)
}

type FriendService struct {
	store treestore.Store
	users repositories.UserRepository
}

func NewFriendService(store treestore.Store, users repositories.UserRepository) *FriendService {
	return &FriendService{store: store, users: users}
}

func (s *FriendService) SendRequest(ctx context.Context, fromID, toID string) error {
	if fromID == "" || toID == "" {
		return invalid("both users are required")
	}
	if fromID == toID {
		return invalid("cannot befriend yourself")
	}
	target, err := s.users.GetUser(ctx, toID)
	if err != nil {
		return classify(err)
	}
	if target.Friends[fromID] == models.FriendActive {
		return invalid("already friends with %s", toID)
	}

	if err := s.store.Set(ctx, repositories.FriendRequestPath(toID, fromID), models.RequestPending); err != nil {
		return fmt.Errorf("send friend request %s -> %s: %w", fromID, toID, err)
	}
	return nil
}

// Accept makes uid and fromID friends and consumes the pending request.
func (s *FriendService) Accept(ctx context.Context, uid, fromID string) error {
	if err := s.requirePending(ctx, uid, fromID); err != nil {
		return err
	}
	updates := map[string]any{
		repositories.FriendPath(uid, fromID):        models.FriendActive,
		repositories.FriendPath(fromID, uid):        models.FriendActive,
		repositories.FriendRequestPath(uid, fromID): nil,
	}
	if err := s.store.Patch(ctx, updates); err != nil {
		return fmt.Errorf("accept friend request %s -> %s: %w", fromID, uid, err)
	}
	return nil
}

func (s *FriendService) Reject(ctx context.Context, uid, fromID string) error {
	if err := s.requirePending(ctx, uid, fromID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, repositories.FriendRequestPath(uid, fromID)); err != nil {
		return fmt.Errorf("reject friend request %s -> %s: %w", fromID, uid, err)
	}
	return nil
}

func (s *FriendService) ListFriends(ctx context.Context, uid string) ([]models.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, classify(err)
	}
	return s.profiles(ctx, user.Friends)
}

func (s *FriendService) ListRequests(ctx context.Context, uid string) ([]models.User, error) {
	user, err := s.users.GetUser(ctx, uid)
	if err != nil {
		return nil, classify(err)
	}
	return s.profiles(ctx, user.FriendRequests)
}

func (s *FriendService) requirePending(ctx context.Context, uid, fromID string) error {
	var state string
	ok, err := s.store.GetInto(ctx, repositories.FriendRequestPath(uid, fromID), &state)
	if err != nil {
		return classify(err)
	}
	if !ok || state != models.RequestPending {
		return notFound("no pending request from %s", fromID)
	}
	return nil
}

// profiles resolves the keys of ids to public profiles, skipping users that no longer exist.
func (s *FriendService) profiles(ctx context.Context, ids map[string]string) ([]models.User, error) {
	out := make([]models.User, 0, len(ids))
	for id := range ids {
		user, err := s.users.GetUser(ctx, id)
		if errors.Is(err, repositories.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, user.Public())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

var _ Friends = (*FriendService)(nil)
