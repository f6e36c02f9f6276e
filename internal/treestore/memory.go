package treestore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryBackend keeps the whole tree in process. Writes are applied atomically.
type MemoryBackend struct {
	mu   sync.RWMutex
	root map[string]any
}

// NewMemoryBackend returns an empty tree.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{root: map[string]any{}}
}

func (m *MemoryBackend) Name() string { return "memory" }

func (m *MemoryBackend) Read(ctx context.Context, path string) (json.RawMessage, error) {
	segments, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	node := lookup(m.root, segments)
	if node == nil {
		return nil, nil
	}
	if root, ok := node.(map[string]any); ok && len(root) == 0 {
		return nil, nil
	}
	return json.Marshal(node)
}

func (m *MemoryBackend) Write(ctx context.Context, updates map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := sortedKeys(updates)
	split := make([][]string, len(keys))
	for i, p := range keys {
		segments, err := SplitPath(p)
		if err != nil {
			return err
		}
		split[i] = segments
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range keys {
		place(m.root, split[i], updates[p])
	}
	return nil
}
