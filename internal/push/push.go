package push

import (
	"context"
	"fmt"
	"log"

	"firebase.google.com/go/v4/messaging"
)

// FCM accepts at most this many tokens per multicast.
const maxMulticastTokens = 500

// Notification is the user visible part of a push.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier delivers pushes to device tokens. It returns the tokens the
// provider reported as no longer registered.
type Notifier interface {
	Notify(ctx context.Context, tokens []string, n Notification) ([]string, error)
}

// FCMNotifier sends through Firebase Cloud Messaging.
type FCMNotifier struct {
	client *messaging.Client
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

func (f *FCMNotifier) Notify(ctx context.Context, tokens []string, n Notification) ([]string, error) {
	var stale []string
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := start + maxMulticastTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: n.Title,
				Body:  n.Body,
			},
			Data: n.Data,
			Android: &messaging.AndroidConfig{
				Priority: "high",
			},
		})
		if err != nil {
			return stale, fmt.Errorf("fcm multicast: %w", err)
		}
		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			if messaging.IsRegistrationTokenNotRegistered(r.Error) {
				stale = append(stale, batch[i])
				continue
			}
			log.Printf("fcm send failed token_index=%d: %v", start+i, r.Error)
		}
	}
	return stale, nil
}

// NoopNotifier drops every push.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, tokens []string, n Notification) ([]string, error) {
	return nil, nil
}

var (
	_ Notifier = (*FCMNotifier)(nil)
	_ Notifier = NoopNotifier{}
)
