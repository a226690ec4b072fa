package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/agentkit-dev/agentkit"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient is the subset of the go-openai client the SDK adapter uses,
// kept as an interface for testability.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// SDK adapts the official OpenAI client to the Provider interface. Unlike
// OpenAICompatible it delegates transport concerns to the SDK.
type SDK struct {
	client         OpenAIClient
	embeddingModel string
}

// NewSDK creates a provider backed by the OpenAI SDK.
func NewSDK(apiKey string) *SDK {
	return NewSDKWithClient(openai.NewClient(apiKey))
}

// NewSDKWithClient creates a provider with an injected client, useful for
// tests and for custom client configuration.
func NewSDKWithClient(client OpenAIClient) *SDK {
	return &SDK{client: client, embeddingModel: string(openai.SmallEmbedding3)}
}

// Name returns the provider name.
func (p *SDK) Name() string {
	return "openai"
}

// Generate executes a chat completion through the SDK.
func (p *SDK) Generate(ctx context.Context, req Request) (*Response, error) {
	sdkReq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: float32(req.Generation.Temperature),
		TopP:        float32(req.Generation.TopP),
		Stop:        req.Generation.Stop,
		Seed:        req.Generation.Seed,
	}
	if req.Generation.MaxTokens != nil {
		sdkReq.MaxTokens = *req.Generation.MaxTokens
	}
	if req.Generation.PresencePenalty != nil {
		sdkReq.PresencePenalty = float32(*req.Generation.PresencePenalty)
	}
	if req.Generation.FrequencyPenalty != nil {
		sdkReq.FrequencyPenalty = float32(*req.Generation.FrequencyPenalty)
	}

	for _, m := range req.Messages {
		sdkReq.Messages = append(sdkReq.Messages, openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		})
	}
	for _, t := range req.Tools {
		sdkReq.Tools = append(sdkReq.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, sdkReq)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Message: "no choices in response"}
	}

	choice := resp.Choices[0]
	var toolCalls []agentkit.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, agentkit.ToolCall{
			Name:      tc.Function.Name,
			Arguments: decodeToolArguments(tc.Function.Arguments),
			CallID:    tc.ID,
		})
	}

	return &Response{
		Content:      choice.Message.Content,
		ToolCalls:    toolCalls,
		FinishReason: string(choice.FinishReason),
		Usage: agentkit.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream yields a minimal stream synthesized from a non-streaming call.
func (p *SDK) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return synthesizeStream(resp), nil
}

// Embed generates embeddings through the SDK, one vector per input text.
func (p *SDK) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	model := req.Model
	if model == "" {
		model = p.embeddingModel
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(model),
		Input: req.Texts,
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, item := range resp.Data {
		vec := make([]float64, len(item.Embedding))
		for j, v := range item.Embedding {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return &EmbeddingResponse{Vectors: vectors}, nil
}

func (p *SDK) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		body, _ := json.Marshal(apiErr)
		return &ProviderError{
			Provider:   p.Name(),
			StatusCode: apiErr.HTTPStatusCode,
			Body:       string(body),
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	return &ProviderError{Provider: p.Name(), Message: err.Error(), Err: err}
}

var _ Provider = (*SDK)(nil)
