// Package provider defines the backend adapter contract the agent runtime
// generates against, plus concrete adapters for OpenAI-compatible APIs,
// Gemini, and the official OpenAI SDK.
package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentkit-dev/agentkit"
)

// Provider is the interface a concrete model backend implements to turn a
// normalized request into a normalized response.
type Provider interface {
	// Generate performs a single round-trip: it must populate text
	// content, zero-or-more tool calls, and token usage.
	Generate(ctx context.Context, req Request) (*Response, error)

	// Stream returns a lazy sequence of events tagged content, tool_calls,
	// then done. A minimal implementation may synthesize the sequence
	// from one Generate call.
	Stream(ctx context.Context, req Request) (<-chan Event, error)

	// Embed generates one vector per input text, order-preserving.
	Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error)

	// Name returns the provider name (e.g. "openai", "gemini").
	Name() string
}

// GenerationConfig holds sampling and response-shaping parameters.
// Pointer fields are optional: adapters omit them from outgoing payloads
// entirely when unset, so backend defaults apply.
type GenerationConfig struct {
	Temperature      float64        `yaml:"temperature" json:"temperature"`
	TopP             float64        `yaml:"top_p" json:"top_p"`
	MaxTokens        *int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Stop             []string       `yaml:"stop,omitempty" json:"stop,omitempty"`
	Seed             *int           `yaml:"seed,omitempty" json:"seed,omitempty"`
	PresencePenalty  *float64       `yaml:"presence_penalty,omitempty" json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `yaml:"frequency_penalty,omitempty" json:"frequency_penalty,omitempty"`
	ResponseFormat   map[string]any `yaml:"response_format,omitempty" json:"response_format,omitempty"`
}

// DefaultGenerationConfig returns the baseline sampling parameters.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{Temperature: 0.2, TopP: 1.0}
}

// ToolSchema is the provider-facing descriptor for a registered tool.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Request is the envelope passed from the runtime to a provider adapter.
type Request struct {
	Model      string
	Messages   []agentkit.Message
	Generation GenerationConfig
	Tools      []ToolSchema
}

// Response is the normalized provider output.
type Response struct {
	Content      string
	ToolCalls    []agentkit.ToolCall
	Usage        agentkit.Usage
	FinishReason string
}

// EventType tags a streaming event.
type EventType string

const (
	EventContent   EventType = "content"
	EventToolCalls EventType = "tool_calls"
	EventDone      EventType = "done"
)

// Event is one element of a provider stream.
type Event struct {
	Type      EventType
	Content   string
	ToolCalls []agentkit.ToolCall
	Usage     *agentkit.Usage
}

// EmbeddingRequest is a batch embedding request.
type EmbeddingRequest struct {
	Model string
	Texts []string
}

// EmbeddingResponse carries one vector per input text, input order
// preserved.
type EmbeddingResponse struct {
	Vectors [][]float64
}

// ProviderError reports a backend failure status or malformed payload.
// For HTTP-backed adapters it carries the status and raw response body.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// synthesizeStream emits the canonical minimal event sequence for a
// completed response: content, tool_calls when present, then done with
// usage.
func synthesizeStream(resp *Response) <-chan Event {
	ch := make(chan Event, 3)
	ch <- Event{Type: EventContent, Content: resp.Content}
	if len(resp.ToolCalls) > 0 {
		ch <- Event{Type: EventToolCalls, ToolCalls: resp.ToolCalls}
	}
	usage := resp.Usage
	ch <- Event{Type: EventDone, Usage: &usage}
	close(ch)
	return ch
}

// decodeToolArguments parses a JSON-encoded argument string, defaulting to
// an empty mapping on decode failure or non-object payloads.
func decodeToolArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		return map[string]any{}
	}
	return args
}
