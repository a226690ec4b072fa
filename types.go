package agentkit

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one chat turn exchanged between user, assistant, system, or
// tool. Messages are immutable once appended to session history; ordering
// within a session is append order.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// Name is the tool name for tool-role messages.
	Name string `json:"name,omitempty"`

	// ToolCallID echoes the call_id of the tool call this message answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// ToolCall is a model request to execute a named tool with arguments.
// CallID is opaque and must be echoed back on the corresponding tool-result
// message so the backend can correlate calls to results.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	CallID    string         `json:"call_id"`
}

// ToolResult is a normalized tool execution output.
type ToolResult struct {
	Name     string         `json:"name"`
	CallID   string         `json:"call_id"`
	Output   string         `json:"output"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Usage holds token counts reported by a provider. It is advisory
// telemetry and never drives control decisions.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`
}

// Document is the input unit for retrieval indexing. A document may be
// split into multiple indexed chunks, each inheriting the parent's ID and
// metadata.
type Document struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RetrievedChunk is a chunk returned from a similarity query, produced
// fresh per query and never persisted. Score is a similarity in an
// implementation-defined range (cosine similarity in [-1, 1] for the
// hashed reference retriever).
type RetrievedChunk struct {
	DocumentID string         `json:"document_id"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AgentResult is the normalized outcome of one agent turn.
type AgentResult struct {
	// OutputText is the final assistant output for the turn.
	OutputText string `json:"output_text"`

	// Messages is the full working message list the turn produced,
	// including history, injected context, and tool results.
	Messages []Message `json:"messages"`

	// ToolCalls lists every tool call the backend requested, in order.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	Usage     Usage         `json:"usage"`
	Latency   time.Duration `json:"latency"`
	SessionID string        `json:"session_id"`

	// Citations holds the retrieval chunks injected into the turn.
	Citations []RetrievedChunk `json:"citations,omitempty"`
}
