// Package memory provides session history persistence for the agent
// runtime: a volatile in-process store, a durable SQLite store, a Redis
// store for shared deployments, and a Firestore store.
//
// Ordering under concurrent turns against the same session id is a caller
// responsibility; backends guarantee last-writer-wins at minimum.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentkit-dev/agentkit"
)

// SummaryMarker prefixes the synthetic system message produced by
// compaction.
const SummaryMarker = "Summary:"

// Backend is the session memory contract the orchestration loop persists
// through.
type Backend interface {
	// Append durably adds messages to a session in the given order.
	Append(ctx context.Context, sessionID string, messages []agentkit.Message) error

	// Load returns at most limit most-recent messages in chronological
	// order (oldest first). limit <= 0 returns the full history.
	Load(ctx context.Context, sessionID string, limit int) ([]agentkit.Message, error)

	// SummarizeIfNeeded compacts the session when its message count
	// exceeds budget: the oldest excess messages are replaced with one
	// synthetic system-role summary while the most recent budget messages
	// are retained verbatim.
	SummarizeIfNeeded(ctx context.Context, sessionID string, budget int) error
}

// SessionInfo describes one stored session for maintenance tooling.
type SessionInfo struct {
	ID           string
	MessageCount int
	LastActivity time.Time
}

// Pruner is implemented by backends that support session enumeration and
// deletion, enabling the Janitor.
type Pruner interface {
	Sessions(ctx context.Context) ([]SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// compact replaces the oldest excess messages with one synthetic summary
// message when len(messages) exceeds budget. The second return reports
// whether compaction happened. Every backend funnels through this helper
// so all implementations behave identically.
func compact(messages []agentkit.Message, budget int) ([]agentkit.Message, bool) {
	if budget < 0 || len(messages) <= budget {
		return messages, false
	}

	var b strings.Builder
	b.WriteString(SummaryMarker)
	b.WriteString("\n")
	excess := messages[:len(messages)-budget]
	for i, m := range excess {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%s] %s", m.Role, m.Content)
	}

	compacted := make([]agentkit.Message, 0, budget+1)
	compacted = append(compacted, agentkit.NewMessage(agentkit.RoleSystem, b.String()))
	compacted = append(compacted, messages[len(messages)-budget:]...)
	return compacted, true
}

// tail returns the last limit messages, or all of them when limit <= 0.
func tail(messages []agentkit.Message, limit int) []agentkit.Message {
	if limit <= 0 || len(messages) <= limit {
		return messages
	}
	return messages[len(messages)-limit:]
}
