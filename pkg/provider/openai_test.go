package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-dev/agentkit"
)

func chatCompletionServer(t *testing.T, capture *map[string]any, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			*capture = payload
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

const plainCompletion = `{
	"choices": [{"message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}],
	"usage": {"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10}
}`

func TestOpenAIGenerateOmitsUnsetParameters(t *testing.T) {
	var captured map[string]any
	srv := chatCompletionServer(t, &captured, plainCompletion)
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	resp, err := p.Generate(context.Background(), Request{
		Model: "test-model",
		Messages: []agentkit.Message{
			agentkit.NewMessage(agentkit.RoleUser, "hello"),
		},
		Generation: DefaultGenerationConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, 10, resp.Usage.TotalTokens)

	// Sampling basics are always sent; optional knobs must be absent, not
	// null.
	assert.Equal(t, 0.2, captured["temperature"])
	assert.Equal(t, 1.0, captured["top_p"])
	for _, key := range []string{"max_tokens", "stop", "seed", "presence_penalty", "frequency_penalty", "response_format", "tools"} {
		_, present := captured[key]
		assert.Falsef(t, present, "unset parameter %q must be omitted", key)
	}
}

func TestOpenAIGenerateSendsOptionalParametersWhenSet(t *testing.T) {
	var captured map[string]any
	srv := chatCompletionServer(t, &captured, plainCompletion)
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	maxTokens := 256
	seed := 7
	gen := DefaultGenerationConfig()
	gen.MaxTokens = &maxTokens
	gen.Seed = &seed
	gen.Stop = []string{"END"}

	_, err := p.Generate(context.Background(), Request{
		Model:      "test-model",
		Messages:   []agentkit.Message{agentkit.NewMessage(agentkit.RoleUser, "hello")},
		Generation: gen,
		Tools: []ToolSchema{{
			Name:        "echo",
			Description: "echoes",
			Parameters:  json.RawMessage(`{"type":"object"}`),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 256.0, captured["max_tokens"])
	assert.Equal(t, 7.0, captured["seed"])
	assert.Equal(t, []any{"END"}, captured["stop"])

	tools, ok := captured["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)
	assert.Equal(t, "function", fn["type"])
}

func TestOpenAIGenerateDecodesToolCalls(t *testing.T) {
	srv := chatCompletionServer(t, nil, `{
		"choices": [{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [
					{"id": "call-1", "type": "function", "function": {"name": "weather", "arguments": "{\"city\":\"Oslo\"}"}},
					{"id": "call-2", "type": "function", "function": {"name": "broken", "arguments": "not json"}}
				]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
	}`)
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	resp, err := p.Generate(context.Background(), Request{Model: "m", Generation: DefaultGenerationConfig()})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 2)

	assert.Equal(t, "weather", resp.ToolCalls[0].Name)
	assert.Equal(t, "Oslo", resp.ToolCalls[0].Arguments["city"])
	assert.Equal(t, "call-1", resp.ToolCalls[0].CallID)

	// Undecodable arguments fall back to an empty mapping.
	assert.NotNil(t, resp.ToolCalls[1].Arguments)
	assert.Empty(t, resp.ToolCalls[1].Arguments)
}

func TestOpenAINon2xxBecomesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	_, err := p.Generate(context.Background(), Request{Model: "m", Generation: DefaultGenerationConfig()})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusTooManyRequests, provErr.StatusCode)
	assert.Contains(t, provErr.Body, "rate limited")
}

func TestOpenAIEmptyChoicesIsProviderError(t *testing.T) {
	srv := chatCompletionServer(t, nil, `{"choices": []}`)
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	_, err := p.Generate(context.Background(), Request{Model: "m", Generation: DefaultGenerationConfig()})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Contains(t, provErr.Message, "no choices")
}

func TestOpenAIEmbedPreservesInputOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// Deliberately out of order; index decides placement.
		_, _ = w.Write([]byte(`{"data": [
			{"index": 1, "embedding": [0.2]},
			{"index": 0, "embedding": [0.1]}
		]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	resp, err := p.Embed(context.Background(), EmbeddingRequest{Model: "m", Texts: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, resp.Vectors, 2)
	assert.Equal(t, []float64{0.1}, resp.Vectors[0])
	assert.Equal(t, []float64{0.2}, resp.Vectors[1])
}

func TestOpenAIStreamSynthesizesEvents(t *testing.T) {
	srv := chatCompletionServer(t, nil, plainCompletion)
	defer srv.Close()

	p := NewOpenAICompatible(srv.URL, "key")

	events, err := p.Stream(context.Background(), Request{Model: "m", Generation: DefaultGenerationConfig()})
	require.NoError(t, err)

	var types []EventType
	var done *Event
	for ev := range events {
		ev := ev
		types = append(types, ev.Type)
		if ev.Type == EventDone {
			done = &ev
		}
	}

	assert.Equal(t, []EventType{EventContent, EventDone}, types)
	require.NotNil(t, done)
	assert.Equal(t, 10, done.Usage.TotalTokens)
}
