package memory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFromClient(client, "", ttl), mr
}

func TestRedisConformance(t *testing.T) {
	store, _ := newTestRedis(t, 0)
	backendConformance(t, store)
}

func TestRedisAppliesSessionTTL(t *testing.T) {
	store, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "ephemeral", userMessages(1)))

	ttl := mr.TTL("agentkit:session:ephemeral")
	assert.Equal(t, time.Hour, ttl)

	// Idle expiry drops the whole session.
	mr.FastForward(2 * time.Hour)
	loaded, err := store.Load(ctx, "ephemeral", 0)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestNewRedisRequiresAddr(t *testing.T) {
	_, err := NewRedis(RedisConfig{})
	assert.Error(t, err)
}
