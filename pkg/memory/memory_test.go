package memory

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-dev/agentkit"
)

func userMessages(n int) []agentkit.Message {
	msgs := make([]agentkit.Message, n)
	for i := range msgs {
		msgs[i] = agentkit.NewMessage(agentkit.RoleUser, fmt.Sprintf("message %d", i))
	}
	return msgs
}

// backendConformance runs the contract checks shared by every store.
func backendConformance(t *testing.T, store Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("load empty session", func(t *testing.T) {
		msgs, err := store.Load(ctx, "missing", 10)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("append then load preserves order", func(t *testing.T) {
		appended := userMessages(5)
		require.NoError(t, store.Append(ctx, "order", appended))

		loaded, err := store.Load(ctx, "order", 0)
		require.NoError(t, err)
		require.Len(t, loaded, 5)
		for i := range appended {
			assert.Equal(t, appended[i].Content, loaded[i].Content)
			assert.Equal(t, appended[i].Role, loaded[i].Role)
		}
	})

	t.Run("load truncates from the tail", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "truncate", userMessages(6)))

		loaded, err := store.Load(ctx, "truncate", 2)
		require.NoError(t, err)
		require.Len(t, loaded, 2)
		assert.Equal(t, "message 4", loaded[0].Content)
		assert.Equal(t, "message 5", loaded[1].Content)
	})

	t.Run("compaction leaves budget plus summary", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "compact", userMessages(9)))

		require.NoError(t, store.SummarizeIfNeeded(ctx, "compact", 3))

		loaded, err := store.Load(ctx, "compact", 0)
		require.NoError(t, err)
		require.Len(t, loaded, 4)

		summary := loaded[0]
		assert.Equal(t, agentkit.RoleSystem, summary.Role)
		assert.True(t, strings.HasPrefix(summary.Content, SummaryMarker))
		assert.Contains(t, summary.Content, "[user] message 0")
		assert.Contains(t, summary.Content, "[user] message 5")

		// The most recent budget messages survive verbatim.
		assert.Equal(t, "message 6", loaded[1].Content)
		assert.Equal(t, "message 7", loaded[2].Content)
		assert.Equal(t, "message 8", loaded[3].Content)
	})

	t.Run("compaction below budget is a no-op", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, "small", userMessages(2)))

		require.NoError(t, store.SummarizeIfNeeded(ctx, "small", 10))

		loaded, err := store.Load(ctx, "small", 0)
		require.NoError(t, err)
		assert.Len(t, loaded, 2)
	})

	t.Run("metadata round-trips", func(t *testing.T) {
		msg := agentkit.NewMessage(agentkit.RoleTool, "result")
		msg.Name = "weather"
		msg.ToolCallID = "call-7"
		msg.Metadata = map[string]any{"attempt": "1"}
		require.NoError(t, store.Append(ctx, "meta", []agentkit.Message{msg}))

		loaded, err := store.Load(ctx, "meta", 0)
		require.NoError(t, err)
		require.Len(t, loaded, 1)
		assert.Equal(t, "weather", loaded[0].Name)
		assert.Equal(t, "call-7", loaded[0].ToolCallID)
		assert.Equal(t, "1", loaded[0].Metadata["attempt"])
	})
}

func TestCompact(t *testing.T) {
	t.Run("under budget unchanged", func(t *testing.T) {
		msgs := userMessages(3)
		out, changed := compact(msgs, 5)
		assert.False(t, changed)
		assert.Len(t, out, 3)
	})

	t.Run("over budget produces summary plus tail", func(t *testing.T) {
		msgs := userMessages(7)
		out, changed := compact(msgs, 4)
		require.True(t, changed)
		require.Len(t, out, 5)
		assert.Equal(t, agentkit.RoleSystem, out[0].Role)
		assert.Equal(t, "message 3", out[1].Content)
	})

	t.Run("summary renders removed messages in order", func(t *testing.T) {
		msgs := []agentkit.Message{
			agentkit.NewMessage(agentkit.RoleUser, "hi"),
			agentkit.NewMessage(agentkit.RoleAssistant, "hello"),
			agentkit.NewMessage(agentkit.RoleUser, "bye"),
		}
		out, changed := compact(msgs, 1)
		require.True(t, changed)
		assert.Equal(t, SummaryMarker+"\n[user] hi\n[assistant] hello", out[0].Content)
		assert.Equal(t, "bye", out[1].Content)
	})
}

func TestTail(t *testing.T) {
	msgs := userMessages(4)

	assert.Len(t, tail(msgs, 0), 4)
	assert.Len(t, tail(msgs, -1), 4)
	assert.Len(t, tail(msgs, 10), 4)

	last := tail(msgs, 2)
	require.Len(t, last, 2)
	assert.Equal(t, "message 2", last[0].Content)
}
