package treestore

import (
	"context"
	"encoding/json"
	"fmt"

	"firebase.google.com/go/v4/db"
)

// FirebaseBackend talks to a Firebase Realtime Database.
type FirebaseBackend struct {
	client *db.Client
}

// NewFirebaseBackend wraps a database client obtained from firebase.App.Database.
func NewFirebaseBackend(client *db.Client) *FirebaseBackend {
	return &FirebaseBackend{client: client}
}

func (f *FirebaseBackend) Name() string { return "firebase" }

func (f *FirebaseBackend) Read(ctx context.Context, path string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := f.client.NewRef("/"+path).Get(ctx, &raw); err != nil {
		return nil, fmt.Errorf("firebase get %s: %w", path, err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return raw, nil
}

// Write uses a root level multi-path update. Null values delete their path.
func (f *FirebaseBackend) Write(ctx context.Context, updates map[string]any) error {
	if err := f.client.NewRef("/").Update(ctx, updates); err != nil {
		return fmt.Errorf("firebase update: %w", err)
	}
	return nil
}
