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

func TestGeminiGenerateTranslatesRoles(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "answer"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 2, "totalTokenCount": 5}
		}`))
	}))
	defer srv.Close()

	p := NewGemini("key", srv.URL)

	toolMsg := agentkit.NewMessage(agentkit.RoleTool, "42")
	toolMsg.Name = "calc"

	resp, err := p.Generate(context.Background(), Request{
		Model: "gemini-pro",
		Messages: []agentkit.Message{
			agentkit.NewMessage(agentkit.RoleSystem, "be brief"),
			agentkit.NewMessage(agentkit.RoleUser, "question"),
			agentkit.NewMessage(agentkit.RoleAssistant, "calling tool"),
			toolMsg,
		},
		Generation: DefaultGenerationConfig(),
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", resp.Content)
	assert.Equal(t, 5, resp.Usage.TotalTokens)

	// System text travels out of band.
	sys := captured["systemInstruction"].(map[string]any)
	parts := sys["parts"].([]any)
	assert.Equal(t, "be brief", parts[0].(map[string]any)["text"])

	contents := captured["contents"].([]any)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].(map[string]any)["role"])
	assert.Equal(t, "model", contents[1].(map[string]any)["role"])

	// Tool results become functionResponse parts on a user turn.
	toolContent := contents[2].(map[string]any)
	assert.Equal(t, "user", toolContent["role"])
	fr := toolContent["parts"].([]any)[0].(map[string]any)["functionResponse"].(map[string]any)
	assert.Equal(t, "calc", fr["name"])
}

func TestGeminiGenerateExtractsFunctionCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"candidates": [{
				"content": {"role": "model", "parts": [
					{"functionCall": {"name": "calc", "args": {"x": 2}}}
				]},
				"finishReason": "STOP"
			}],
			"usageMetadata": {"totalTokenCount": 1}
		}`))
	}))
	defer srv.Close()

	p := NewGemini("key", srv.URL)

	resp, err := p.Generate(context.Background(), Request{Model: "gemini-pro", Generation: DefaultGenerationConfig()})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "calc", resp.ToolCalls[0].Name)
	assert.Equal(t, 2.0, resp.ToolCalls[0].Arguments["x"])
	assert.NotEmpty(t, resp.ToolCalls[0].CallID)
}

func TestGeminiNon2xxBecomesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	p := NewGemini("key", srv.URL)

	_, err := p.Generate(context.Background(), Request{Model: "gemini-pro", Generation: DefaultGenerationConfig()})

	var provErr *ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, http.StatusForbidden, provErr.StatusCode)
	assert.Equal(t, "denied", provErr.Body)
}

func TestGeminiEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings": [{"values": [0.1, 0.2]}, {"values": [0.3, 0.4]}]}`))
	}))
	defer srv.Close()

	p := NewGemini("key", srv.URL)

	resp, err := p.Embed(context.Background(), EmbeddingRequest{Model: "embedding-001", Texts: []string{"a", "b"}})
	require.NoError(t, err)
	require.Len(t, resp.Vectors, 2)
	assert.Equal(t, []float64{0.1, 0.2}, resp.Vectors[0])
}
