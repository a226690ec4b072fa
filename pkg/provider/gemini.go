package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/agentkit-dev/agentkit"
)

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini talks to the Google Gemini REST API and normalizes its
// content/part wire format into the shared request/response shapes.
type Gemini struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewGemini creates a Gemini provider. An empty baseURL selects the public
// endpoint.
func NewGemini(apiKey, baseURL string) *Gemini {
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	return &Gemini{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// Name returns the provider name.
func (p *Gemini) Name() string {
	return "gemini"
}

type geminiPart struct {
	Text         string          `json:"text,omitempty"`
	FunctionCall *geminiFuncCall `json:"functionCall,omitempty"`
	FunctionResp *geminiFuncResp `json:"functionResponse,omitempty"`
}

type geminiFuncCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFuncResp struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenConfig struct {
	Temperature     float64  `json:"temperature"`
	TopP            float64  `json:"topP"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
	Seed            *int     `json:"seed,omitempty"`
}

type geminiFuncDecl struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFuncDecl `json:"functionDeclarations,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent  `json:"contents"`
	SystemInstruction *geminiContent   `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenConfig `json:"generationConfig,omitempty"`
	Tools             []geminiTool     `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float64 `json:"values"`
	} `json:"embeddings"`
}

// Generate executes a generateContent request and normalizes the response.
func (p *Gemini) Generate(ctx context.Context, req Request) (*Response, error) {
	payload := geminiRequest{
		GenerationConfig: &geminiGenConfig{
			Temperature:     req.Generation.Temperature,
			TopP:            req.Generation.TopP,
			MaxOutputTokens: req.Generation.MaxTokens,
			StopSequences:   req.Generation.Stop,
			Seed:            req.Generation.Seed,
		},
	}

	for _, m := range req.Messages {
		switch m.Role {
		case agentkit.RoleSystem:
			// Gemini carries system text out of band.
			if payload.SystemInstruction == nil {
				payload.SystemInstruction = &geminiContent{}
			}
			payload.SystemInstruction.Parts = append(payload.SystemInstruction.Parts, geminiPart{Text: m.Content})
		case agentkit.RoleAssistant:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: m.Content}},
			})
		case agentkit.RoleTool:
			payload.Contents = append(payload.Contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{FunctionResp: &geminiFuncResp{
					Name:     m.Name,
					Response: map[string]any{"result": m.Content},
				}}},
			})
		default:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}

	if len(req.Tools) > 0 {
		tool := geminiTool{}
		for _, t := range req.Tools {
			tool.FunctionDeclarations = append(tool.FunctionDeclarations, geminiFuncDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			})
		}
		payload.Tools = []geminiTool{tool}
	}

	var resp geminiResponse
	endpoint := fmt.Sprintf("/models/%s:generateContent", req.Model)
	if err := p.post(ctx, endpoint, payload, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Message: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	out := &Response{
		FinishReason: candidate.FinishReason,
		Usage: agentkit.Usage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		},
	}
	for i, part := range candidate.Content.Parts {
		if part.Text != "" {
			out.Content += part.Text
		}
		if part.FunctionCall != nil {
			args := part.FunctionCall.Args
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, agentkit.ToolCall{
				Name:      part.FunctionCall.Name,
				Arguments: args,
				CallID:    fmt.Sprintf("%s-%d", part.FunctionCall.Name, i),
			})
		}
	}
	return out, nil
}

// Stream yields a minimal stream synthesized from a non-streaming call.
func (p *Gemini) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return synthesizeStream(resp), nil
}

// Embed calls batchEmbedContents and returns one vector per input text.
func (p *Gemini) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	type embedContent struct {
		Model   string        `json:"model"`
		Content geminiContent `json:"content"`
	}
	requests := make([]embedContent, len(req.Texts))
	for i, text := range req.Texts {
		requests[i] = embedContent{
			Model:   "models/" + req.Model,
			Content: geminiContent{Parts: []geminiPart{{Text: text}}},
		}
	}

	var resp geminiEmbedResponse
	endpoint := fmt.Sprintf("/models/%s:batchEmbedContents", req.Model)
	if err := p.post(ctx, endpoint, map[string]any{"requests": requests}, &resp); err != nil {
		return nil, err
	}

	vectors := make([][]float64, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vectors[i] = e.Values
	}
	return &EmbeddingResponse{Vectors: vectors}, nil
}

func (p *Gemini) post(ctx context.Context, endpoint string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Message: err.Error(), Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

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

var _ Provider = (*Gemini)(nil)
var _ Provider = (*OpenAICompatible)(nil)
