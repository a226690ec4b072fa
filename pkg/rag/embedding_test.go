package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-dev/agentkit"
	"github.com/agentkit-dev/agentkit/pkg/provider"
)

// keywordEmbedder maps texts to fixed vectors so similarity ordering is
// fully controlled by the test.
type keywordEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (e *keywordEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	e.calls++
	out := make([][]float64, len(req.Texts))
	for i, text := range req.Texts {
		if v, ok := e.vectors[text]; ok {
			out[i] = v
		} else {
			out[i] = []float64{0, 0, 0}
		}
	}
	return &provider.EmbeddingResponse{Vectors: out}, nil
}

func TestEmbeddingRetrieverRanksByCosine(t *testing.T) {
	embedder := &keywordEmbedder{vectors: map[string][]float64{
		"agents and tools": {1, 0, 0},
		"pasta and sauce":  {0, 1, 0},
		"tool calling":     {0.9, 0.1, 0},
	}}
	r := NewEmbeddingRetriever(embedder, "test-model")

	err := r.AddDocuments(context.Background(), []agentkit.Document{
		{ID: "d1", Text: "agents and tools"},
		{ID: "d2", Text: "pasta and sauce"},
	})
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "tool calling", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "d1", chunks[0].DocumentID)
}

func TestEmbeddingRetrieverEmptyIndex(t *testing.T) {
	embedder := &keywordEmbedder{}
	r := NewEmbeddingRetriever(embedder, "test-model")

	chunks, err := r.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Zero(t, embedder.calls, "no embedding call for an empty index")
}

func TestEmbeddingRetrieverMismatchedDimensionsScoreZero(t *testing.T) {
	embedder := &keywordEmbedder{vectors: map[string][]float64{
		"long vector": {1, 0, 0, 0},
	}}
	r := NewEmbeddingRetriever(embedder, "test-model")

	err := r.AddDocuments(context.Background(), []agentkit.Document{
		{ID: "d1", Text: "long vector"},
	})
	require.NoError(t, err)

	chunks, err := r.Retrieve(context.Background(), "query", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0.0, chunks[0].Score)
}
