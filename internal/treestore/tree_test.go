package treestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeDropsEmptyNodes(t *testing.T) {
	value, err := canonicalize(map[string]any{
		"title":  "group",
		"avatar": nil,
		"admin":  map[string]bool{},
		"tags":   []string{"a", "b"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"title": "group",
		"tags":  map[string]any{"0": "a", "1": "b"},
	}, value)
}

func TestExpandOnlyTurnsDenseIndexesIntoLists(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, expand(map[string]any{"0": "a", "1": "b"}))
	assert.Equal(t, map[string]any{"1": "a", "2": "b"}, expand(map[string]any{"1": "a", "2": "b"}))
	assert.Equal(t, map[string]any{"01": "a"}, expand(map[string]any{"01": "a"}))
}

func TestFlatten(t *testing.T) {
	leaves := flatten("chats/c1", map[string]any{
		"title": "t",
		"admin": map[string]any{"alice": true},
	})
	assert.Equal(t, map[string]any{
		"chats/c1/title":       "t",
		"chats/c1/admin/alice": true,
	}, leaves)
}

func TestPlaceReplacesScalarParents(t *testing.T) {
	root := map[string]any{"a": "leaf"}
	place(root, []string{"a", "b"}, "x")
	assert.Equal(t, map[string]any{"a": map[string]any{"b": "x"}}, root)

	place(root, []string{"a", "b"}, nil)
	assert.Empty(t, root)
}

func TestPathHelpers(t *testing.T) {
	assert.True(t, IsAncestor("chats", "chats/c1"))
	assert.True(t, IsAncestor("", "chats"))
	assert.False(t, IsAncestor("chats/c1", "chats/c10"))
	assert.True(t, Related("users/a", "users"))
	assert.False(t, Related("users/a", "users/b"))
	assert.Equal(t, []string{"a", "a/b"}, ancestors("a/b/c"))
	assert.Equal(t, `alice\_bob\%`, escapeLike("alice_bob%"))
}
