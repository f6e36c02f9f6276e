package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopNotifier(t *testing.T) {
	stale, err := NoopNotifier{}.Notify(context.Background(), []string{"t1"}, Notification{Title: "hi"})
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestFCMNotifierSkipsEmptyTokenList(t *testing.T) {
	stale, err := NewFCMNotifier(nil).Notify(context.Background(), nil, Notification{Title: "hi"})
	require.NoError(t, err)
	assert.Empty(t, stale)
}
