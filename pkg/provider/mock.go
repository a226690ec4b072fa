package provider

import (
	"context"

	"github.com/agentkit-dev/agentkit"
)

// Mock is a scripted provider for tests. Responses and errors are consumed
// in order; once the script is exhausted a fixed default response is
// returned. All incoming requests are recorded.
type Mock struct {
	ProviderName string

	Responses []*Response
	Errors    []error
	Vectors   [][][]float64

	GenerateCalls []Request
	EmbedCalls    []EmbeddingRequest

	index      int
	embedIndex int
}

// NewMock creates a mock provider.
func NewMock() *Mock {
	return &Mock{ProviderName: "mock"}
}

// Name returns the provider name.
func (m *Mock) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Generate records the request and returns the next scripted response or
// error.
func (m *Mock) Generate(ctx context.Context, req Request) (*Response, error) {
	m.GenerateCalls = append(m.GenerateCalls, req)

	if m.index < len(m.Errors) && m.Errors[m.index] != nil {
		err := m.Errors[m.index]
		m.index++
		return nil, err
	}
	if m.index < len(m.Responses) {
		resp := m.Responses[m.index]
		m.index++
		return resp, nil
	}

	return &Response{
		Content:      "mock response",
		FinishReason: "stop",
		Usage:        agentkit.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}, nil
}

// Stream synthesizes a stream from the next scripted response.
func (m *Mock) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	resp, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return synthesizeStream(resp), nil
}

// Embed returns the next scripted vector batch, or zero vectors matching
// the input count when the script is exhausted.
func (m *Mock) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	m.EmbedCalls = append(m.EmbedCalls, req)

	if m.embedIndex < len(m.Vectors) {
		vectors := m.Vectors[m.embedIndex]
		m.embedIndex++
		return &EmbeddingResponse{Vectors: vectors}, nil
	}

	vectors := make([][]float64, len(req.Texts))
	for i := range vectors {
		vectors[i] = []float64{0, 0, 0, 0}
	}
	return &EmbeddingResponse{Vectors: vectors}, nil
}

var _ Provider = (*Mock)(nil)
