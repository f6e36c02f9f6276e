package treestore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidPath is returned for malformed or overlapping store paths.
var ErrInvalidPath = errors.New("invalid store path")

// Store is a hierarchical key-path store addressed by slash separated paths.
type Store interface {
	// Get returns the value at path, or nil when absent.
	Get(ctx context.Context, path string) (any, error)
	// GetInto decodes the value at path into dst and reports whether it existed.
	GetInto(ctx context.Context, path string, dst any) (bool, error)
	Set(ctx context.Context, path string, value any) error
	// Update merges the named children of path and leaves siblings untouched.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// Patch writes several full paths at once. A nil value deletes the path.
	Patch(ctx context.Context, updates map[string]any) error
	// Listen invokes fn for every write touching path until ctx is done.
	Listen(ctx context.Context, path string, fn ChangeFunc) error
}

// Backend is the storage engine behind a Client.
type Backend interface {
	Name() string
	// Read returns the JSON encoded subtree at path, or nil when absent.
	Read(ctx context.Context, path string) (json.RawMessage, error)
	// Write applies canonical values to non-overlapping full paths.
	Write(ctx context.Context, updates map[string]any) error
}

// ChangeEvent describes one write applied to the store.
type ChangeEvent struct {
	Paths  []string  `json:"paths"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

// ChangeFunc is a listener callback. Returned errors are logged, never retried.
type ChangeFunc func(ctx context.Context, ev ChangeEvent) error

// Relay carries change events between service instances sharing a backend.
type Relay interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	Subscribe(ctx context.Context, fn func(ChangeEvent)) error
	Close() error
}
