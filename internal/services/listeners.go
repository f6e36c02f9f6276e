package services

import (
	"context"
	"fmt"

	"chat-sync-service/internal/fanout"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

// StartListeners republishes the chat and user lists whenever the store changes below them.
// Chat lists go out without message bodies; the hub narrows them per subscriber.
func StartListeners(ctx context.Context, store treestore.Store, chats repositories.ChatRepository, users repositories.UserRepository, events fanout.Publisher) error {
	if err := store.Listen(ctx, repositories.ChatsRoot, func(ctx context.Context, ev treestore.ChangeEvent) error {
		list, err := chats.ListChats(ctx)
		if err != nil {
			return err
		}
		// message bodies travel only on messages.{chatId}
		for i := range list {
			list[i].Messages = nil
		}
		events.Publish(ctx, fanout.TopicChats, list)
		return nil
	}); err != nil {
		return fmt.Errorf("listen chats: %w", err)
	}

	if err := store.Listen(ctx, repositories.UsersRoot, func(ctx context.Context, ev treestore.ChangeEvent) error {
		list, err := users.ListUsers(ctx)
		if err != nil {
			return err
		}
		for i := range list {
			list[i] = list[i].Public()
		}
		events.Publish(ctx, fanout.TopicUsers, list)
		return nil
	}); err != nil {
		return fmt.Errorf("listen users: %w", err)
	}
	return nil
}
