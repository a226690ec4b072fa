package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentkit-dev/agentkit"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultHTTPTimeout = 120 * time.Second

// OpenAICompatible talks to OpenAI-compatible /chat/completions and
// /embeddings endpoints. It performs no internal retries: any non-2xx
// response surfaces as a *ProviderError carrying the status and raw body.
type OpenAICompatible struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// OpenAIOption configures an OpenAICompatible provider.
type OpenAIOption func(*OpenAICompatible)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(p *OpenAICompatible) { p.client = c }
}

// WithRateLimit bounds outgoing requests client-side.
func WithRateLimit(rps float64, burst int) OpenAIOption {
	return func(p *OpenAICompatible) { p.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(logger zerolog.Logger) OpenAIOption {
	return func(p *OpenAICompatible) { p.logger = logger }
}

// NewOpenAICompatible creates a provider client. baseURL should end in /v1
// for OpenAI-compatible servers.
func NewOpenAICompatible(baseURL, apiKey string, opts ...OpenAIOption) *OpenAICompatible {
	p := &OpenAICompatible{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *OpenAICompatible) Name() string {
	return "openai_compatible"
}

type oaiMessage struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Name       string `json:"name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

type oaiTool struct {
	Type     string     `json:"type"`
	Function ToolSchema `json:"function"`
}

type oaiRequest struct {
	Model            string         `json:"model"`
	Messages         []oaiMessage   `json:"messages"`
	Temperature      float64        `json:"temperature"`
	TopP             float64        `json:"top_p"`
	MaxTokens        *int           `json:"max_tokens,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Seed             *int           `json:"seed,omitempty"`
	PresencePenalty  *float64       `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64       `json:"frequency_penalty,omitempty"`
	ResponseFormat   map[string]any `json:"response_format,omitempty"`
	Tools            []oaiTool      `json:"tools,omitempty"`
}

type oaiToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaiResponse struct {
	Choices []struct {
		Message struct {
			Role      string        `json:"role"`
			Content   string        `json:"content"`
			ToolCalls []oaiToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type oaiEmbeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Generate executes a chat completion request and normalizes the response.
func (p *OpenAICompatible) Generate(ctx context.Context, req Request) (*Response, error) {
	payload := oaiRequest{
		Model:            req.Model,
		Messages:         make([]oaiMessage, len(req.Messages)),
		Temperature:      req.Generation.Temperature,
		TopP:             req.Generation.TopP,
		MaxTokens:        req.Generation.MaxTokens,
		Stop:             req.Generation.Stop,
		Seed:             req.Generation.Seed,
		PresencePenalty:  req.Generation.PresencePenalty,
		FrequencyPenalty: req.Generation.FrequencyPenalty,
		ResponseFormat:   req.Generation.ResponseFormat,
	}
	for i, m := range req.Messages {
		payload.Messages[i] = oaiMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
	}
	for _, t := range req.Tools {
		payload.Tools = append(payload.Tools, oaiTool{Type: "function", Function: t})
	}

	var resp oaiResponse
	if err := p.post(ctx, "/chat/completions", payload, &resp); err != nil {
		return nil, err
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
		FinishReason: choice.FinishReason,
		Usage: agentkit.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream yields a minimal stream synthesized from a non-streaming call.
func (p *OpenAICompatible) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return synthesizeStream(resp), nil
}

// Embed calls the embeddings endpoint and returns one vector per input,
// input order preserved.
func (p *OpenAICompatible) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	payload := map[string]any{"model": req.Model, "input": req.Texts}

	var resp oaiEmbeddingResponse
	if err := p.post(ctx, "/embeddings", payload, &resp); err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(resp.Data))
	for i, item := range resp.Data {
		// The API may return batches out of order; the index field is
		// authoritative.
		if item.Index >= 0 && item.Index < len(vectors) {
			vectors[item.Index] = item.Embedding
		} else {
			vectors[i] = item.Embedding
		}
	}
	return &EmbeddingResponse{Vectors: vectors}, nil
}

func (p *OpenAICompatible) post(ctx context.Context, endpoint string, payload, result any) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	started := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	p.logger.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("provider request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &ProviderError{
			Provider:   p.Name(),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
