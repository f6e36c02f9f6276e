package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"chat-sync-service/internal/models"
	"chat-sync-service/internal/observability"
	"chat-sync-service/internal/repositories"
	"chat-sync-service/internal/treestore"
)

// SweepReport counts what one reconciliation pass repaired.
type SweepReport struct {
	ChatsScanned     int `json:"chatsScanned"`
	SummariesCreated int `json:"summariesCreated"`
	SummariesFixed   int `json:"summariesFixed"`
	SummariesRemoved int `json:"summariesRemoved"`
}

// Reconciler recomputes chat summaries from the chats they describe.
// Summary writes are best effort; this is what eventually repairs them.
type Reconciler struct {
	store treestore.Store
	chats repositories.ChatRepository
	users repositories.UserRepository
}

func NewReconciler(store treestore.Store, chats repositories.ChatRepository, users repositories.UserRepository) *Reconciler {
	return &Reconciler{store: store, chats: chats, users: users}
}

// Run sweeps every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report, err := r.Sweep(ctx)
			if err != nil {
				log.Printf("reconcile sweep failed: %v", err)
				continue
			}
			if report.SummariesCreated+report.SummariesFixed+report.SummariesRemoved > 0 {
				log.Printf("reconcile sweep chats=%d created=%d fixed=%d removed=%d",
					report.ChatsScanned, report.SummariesCreated, report.SummariesFixed, report.SummariesRemoved)
			}
		}
	}
}

// Sweep reads users before chats. Chats are written before their summaries and
// removed together with them, so a summary whose chat is absent from the later
// chat read is a real orphan.
func (r *Reconciler) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return report, err
	}
	chats, err := r.chats.ListChats(ctx)
	if err != nil {
		return report, err
	}

	byUID := make(map[string]models.User, len(users))
	for _, u := range users {
		byUID[u.UID] = u
	}
	byChat := make(map[string]models.Chat, len(chats))

	updates := map[string]any{}
	for _, chat := range chats {
		report.ChatsScanned++
		byChat[chat.ID] = chat
		last, hasLast := newestMessage(chat)

		repairs := map[string]any{}
		var created, fixed int
		for _, uid := range chat.Participants {
			user, ok := byUID[uid]
			if !ok {
				continue
			}
			want := expectedSummary(chat, uid, byUID)
			if hasLast {
				want.LastMessage = last.Preview()
				want.LastUser = last.Sender
				want.Timestamp = last.Timestamp
			}

			have, exists := user.ChatUser[chat.ID]
			drift := summaryDrift(have, want)
			if len(drift) == 0 {
				continue
			}
			for field, value := range drift {
				repairs[repositories.SummaryFieldPath(uid, chat.ID, field)] = value
			}
			if exists {
				fixed++
			} else {
				created++
			}
		}
		if len(repairs) == 0 {
			continue
		}

		// an append or delete after the chat read makes the snapshot stale; the next sweep retries
		exists, err := r.chats.Exists(ctx, chat.ID)
		if err != nil {
			return report, err
		}
		current, err := r.chats.LastMessageID(ctx, chat.ID)
		if err != nil {
			return report, err
		}
		if !exists || current != chat.LastMessageID {
			continue
		}
		for path, value := range repairs {
			updates[path] = value
		}
		report.SummariesCreated += created
		report.SummariesFixed += fixed
	}

	for _, user := range users {
		for chatID := range user.ChatUser {
			chat, ok := byChat[chatID]
			if ok && chat.HasParticipant(user.UID) {
				continue
			}
			updates[repositories.SummaryPath(user.UID, chatID)] = nil
			report.SummariesRemoved++
		}
	}

	if len(updates) == 0 {
		return report, nil
	}
	if err := r.store.Patch(ctx, updates); err != nil {
		return report, fmt.Errorf("apply reconcile patch: %w", err)
	}
	observability.AddReconcileRepairs("created", report.SummariesCreated)
	observability.AddReconcileRepairs("fixed", report.SummariesFixed)
	observability.AddReconcileRepairs("removed", report.SummariesRemoved)
	return report, nil
}

// summaryDrift lists the fields of want that differ from have. The unread count
// belongs to the user and is never rewritten.
func summaryDrift(have, want models.ChatSummary) map[string]any {
	drift := map[string]any{}
	text := func(field, h, w string) {
		if h == w {
			return
		}
		if w == "" {
			drift[field] = nil
			return
		}
		drift[field] = w
	}
	text("lastMessage", have.LastMessage, want.LastMessage)
	text("lastUser", have.LastUser, want.LastUser)
	text("title", have.Title, want.Title)
	text("avatar", have.Avatar, want.Avatar)
	text("type", string(have.Type), string(want.Type))
	text("name", have.Name, want.Name)
	if have.Timestamp != want.Timestamp {
		drift["timestamp"] = want.Timestamp
	}
	return drift
}

// newestMessage follows the last-message pointer, falling back to the newest stored message.
func newestMessage(chat models.Chat) (models.Message, bool) {
	if msg, ok := lastMessageOf(chat); ok {
		return msg, true
	}
	var newest models.Message
	found := false
	for id, msg := range chat.Messages {
		msg.ID = id
		if !found || msg.Timestamp > newest.Timestamp || (msg.Timestamp == newest.Timestamp && msg.ID > newest.ID) {
			newest = msg
			found = true
		}
	}
	return newest, found
}

func expectedSummary(chat models.Chat, uid string, byUID map[string]models.User) models.ChatSummary {
	if chat.Type == models.ChatGroup {
		return groupSummary(chat)
	}
	partnerID := chat.Partner(uid)
	partner, ok := byUID[partnerID]
	if !ok {
		partner = models.User{UID: partnerID}
	}
	return individualSummary(chat, partner)
}
