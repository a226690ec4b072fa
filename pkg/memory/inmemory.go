package memory

import (
	"context"
	"sync"
	"time"

	"github.com/agentkit-dev/agentkit"
)

// InMemory is a volatile, mutex-guarded session store for development and
// tests. Data is lost on process exit.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[string][]agentkit.Message
	activity map[string]time.Time
}

// NewInMemory creates an empty in-process store.
func NewInMemory() *InMemory {
	return &InMemory{
		sessions: make(map[string][]agentkit.Message),
		activity: make(map[string]time.Time),
	}
}

// Append adds messages to a session in order.
func (m *InMemory) Append(ctx context.Context, sessionID string, messages []agentkit.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = append(m.sessions[sessionID], messages...)
	m.activity[sessionID] = time.Now()
	return nil
}

// Load returns at most limit most-recent messages, oldest first.
func (m *InMemory) Load(ctx context.Context, sessionID string, limit int) ([]agentkit.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := tail(m.sessions[sessionID], limit)
	out := make([]agentkit.Message, len(stored))
	copy(out, stored)
	return out, nil
}

// SummarizeIfNeeded compacts the session past the given budget.
func (m *InMemory) SummarizeIfNeeded(ctx context.Context, sessionID string, budget int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	compacted, changed := compact(m.sessions[sessionID], budget)
	if changed {
		m.sessions[sessionID] = compacted
	}
	return nil
}

// Sessions lists stored sessions with their last append time.
func (m *InMemory) Sessions(ctx context.Context) ([]SessionInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for id, msgs := range m.sessions {
		infos = append(infos, SessionInfo{
			ID:           id,
			MessageCount: len(msgs),
			LastActivity: m.activity[id],
		})
	}
	return infos, nil
}

// DeleteSession removes a session and its history.
func (m *InMemory) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	delete(m.activity, sessionID)
	return nil
}

var (
	_ Backend = (*InMemory)(nil)
	_ Pruner  = (*InMemory)(nil)
)
