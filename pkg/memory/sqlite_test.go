package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteConformance(t *testing.T) {
	backendConformance(t, newTestSQLite(t))
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, "durable", userMessages(3)))
	require.NoError(t, store.Close())

	reopened, err := NewSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx, "durable", 0)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, "message 0", loaded[0].Content)
}

func TestSQLitePruner(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "keep", userMessages(1)))
	require.NoError(t, store.Append(ctx, "drop", userMessages(2)))

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, store.DeleteSession(ctx, "drop"))

	loaded, err := store.Load(ctx, "drop", 0)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	sessions, err = store.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "keep", sessions[0].ID)
}
