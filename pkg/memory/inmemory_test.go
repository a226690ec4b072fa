package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryConformance(t *testing.T) {
	backendConformance(t, NewInMemory())
}

func TestInMemoryLoadReturnsCopy(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s", userMessages(2)))

	loaded, err := store.Load(ctx, "s", 0)
	require.NoError(t, err)
	loaded[0].Content = "mutated"

	again, err := store.Load(ctx, "s", 0)
	require.NoError(t, err)
	assert.Equal(t, "message 0", again[0].Content)
}

func TestInMemoryPruner(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", userMessages(2)))
	require.NoError(t, store.Append(ctx, "b", userMessages(3)))

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	counts := map[string]int{}
	for _, info := range sessions {
		counts[info.ID] = info.MessageCount
		assert.False(t, info.LastActivity.IsZero())
	}
	assert.Equal(t, 2, counts["a"])
	assert.Equal(t, 3, counts["b"])

	require.NoError(t, store.DeleteSession(ctx, "a"))

	remaining, err := store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "b", remaining[0].ID)
}
