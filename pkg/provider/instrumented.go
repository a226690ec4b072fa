package provider

import (
	"context"
	"time"

	"github.com/agentkit-dev/agentkit/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented decorates a Provider with OpenTelemetry spans and
// Prometheus metrics for every generate and embed call.
type Instrumented struct {
	provider Provider
}

// NewInstrumented wraps a provider with automatic observability.
func NewInstrumented(p Provider) *Instrumented {
	observability.InitMetrics()
	return &Instrumented{provider: p}
}

// Name returns the underlying provider name.
func (p *Instrumented) Name() string {
	return p.provider.Name()
}

// Generate instruments a generate round-trip.
func (p *Instrumented) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, span := observability.StartSpan(ctx, "provider.generate",
		trace.WithAttributes(
			attribute.String("llm.provider", p.provider.Name()),
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.messages_count", len(req.Messages)),
			attribute.Int("llm.tools_count", len(req.Tools)),
		),
	)
	defer span.End()

	started := time.Now()
	resp, err := p.provider.Generate(ctx, req)
	elapsed := time.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RecordBackendCall(p.provider.Name(), "error", elapsed)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("llm.usage.output_tokens", resp.Usage.OutputTokens),
		attribute.Int("llm.tool_calls", len(resp.ToolCalls)),
	)
	observability.RecordBackendCall(p.provider.Name(), "ok", elapsed)
	return resp, nil
}

// Stream instruments stream setup; events pass through untouched.
func (p *Instrumented) Stream(ctx context.Context, req Request) (<-chan Event, error) {
	ctx, span := observability.StartSpan(ctx, "provider.stream",
		trace.WithAttributes(
			attribute.String("llm.provider", p.provider.Name()),
			attribute.String("llm.model", req.Model),
		),
	)
	defer span.End()

	ch, err := p.provider.Stream(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return ch, nil
}

// Embed instruments a batch embedding call.
func (p *Instrumented) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	ctx, span := observability.StartSpan(ctx, "provider.embed",
		trace.WithAttributes(
			attribute.String("llm.provider", p.provider.Name()),
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.texts_count", len(req.Texts)),
		),
	)
	defer span.End()

	resp, err := p.provider.Embed(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

var _ Provider = (*Instrumented)(nil)
