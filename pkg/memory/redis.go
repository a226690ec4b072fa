package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agentkit-dev/agentkit"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "agentkit:session:"

// Redis stores each session as a Redis list of JSON-encoded messages. It
// suits multi-process deployments sharing one conversation store; session
// expiry is handled by Redis TTLs rather than the Janitor.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is optional.
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix (default "agentkit:session:").
	Prefix string
	// SessionTTL expires idle sessions (0 = never).
	SessionTTL time.Duration
}

// NewRedis creates a Redis-backed store and verifies connectivity.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisFromClient(client, cfg.Prefix, cfg.SessionTTL), nil
}

// NewRedisFromClient creates a store from an existing client. Useful for
// testing with miniredis.
func NewRedisFromClient(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) key(sessionID string) string {
	return r.prefix + sessionID
}

// Append pushes messages onto the session list in order.
func (r *Redis) Append(ctx context.Context, sessionID string, messages []agentkit.Message) error {
	if len(messages) == 0 {
		return nil
	}

	encoded := make([]any, len(messages))
	for i, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		encoded[i] = data
	}

	pipe := r.client.Pipeline()
	pipe.RPush(ctx, r.key(sessionID), encoded...)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(sessionID), r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Load returns at most limit most-recent messages, oldest first.
func (r *Redis) Load(ctx context.Context, sessionID string, limit int) ([]agentkit.Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	raw, err := r.client.LRange(ctx, r.key(sessionID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	messages := make([]agentkit.Message, 0, len(raw))
	for _, item := range raw {
		var m agentkit.Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// SummarizeIfNeeded compacts the session past the given budget, replacing
// the stored list in one pipeline.
func (r *Redis) SummarizeIfNeeded(ctx context.Context, sessionID string, budget int) error {
	messages, err := r.Load(ctx, sessionID, 0)
	if err != nil {
		return err
	}

	compacted, changed := compact(messages, budget)
	if !changed {
		return nil
	}

	encoded := make([]any, len(compacted))
	for i, m := range compacted {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		encoded[i] = data
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(sessionID))
	pipe.RPush(ctx, r.key(sessionID), encoded...)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(sessionID), r.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

var _ Backend = (*Redis)(nil)
