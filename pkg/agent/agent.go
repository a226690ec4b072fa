// Package agent composes a provider, session memory, an optional
// retriever, and registered tools into a bounded conversational turn:
// the model is called repeatedly, requested tools are executed and fed
// back, and a normalized result is returned once the model stops
// requesting tools or the iteration budget runs out.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentkit-dev/agentkit"
	"github.com/agentkit-dev/agentkit/pkg/memory"
	"github.com/agentkit-dev/agentkit/pkg/observability"
	"github.com/agentkit-dev/agentkit/pkg/provider"
	"github.com/agentkit-dev/agentkit/pkg/rag"
	"github.com/agentkit-dev/agentkit/pkg/tool"
	"github.com/agentkit-dev/agentkit/pkg/validate"
)

// Defaults applied when the corresponding option is not set.
const (
	DefaultMaxToolIterations = 4
	DefaultToolTimeout       = 30 * time.Second
	DefaultMemoryWindow      = 20
	DefaultSummaryTrigger    = 40
	DefaultRetrievalTopK     = 5
)

// ragPreamble frames retrieved chunks for the model.
const ragPreamble = "Use only the provided context when relevant. If uncertain, say so.\nContext:\n"

// Agent executes turns against one provider with a fixed tool registry.
// All collaborators are read-shared across turns; do not mutate them
// while turns are in flight.
type Agent struct {
	provider  provider.Provider
	model     string
	system    string
	gen       provider.GenerationConfig
	tools     map[string]tool.Tool
	toolOrder []string
	memory    memory.Backend
	retriever rag.Retriever
	logger    zerolog.Logger

	maxToolIterations int
	toolTimeout       time.Duration
	memoryWindow      int
	summaryTrigger    int
	retrievalTopK     int
}

// Option configures an Agent.
type Option func(*Agent)

// WithSystemPrompt prepends a system message to every turn.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.system = prompt }
}

// WithGeneration overrides the default sampling configuration.
func WithGeneration(cfg provider.GenerationConfig) Option {
	return func(a *Agent) { a.gen = cfg }
}

// WithTools registers tools the model may invoke. Registration order is
// preserved in the schemas offered to the provider.
func WithTools(tools ...tool.Tool) Option {
	return func(a *Agent) {
		for _, t := range tools {
			if _, exists := a.tools[t.Name()]; !exists {
				a.toolOrder = append(a.toolOrder, t.Name())
			}
			a.tools[t.Name()] = t
		}
	}
}

// WithMemory replaces the default volatile session store.
func WithMemory(backend memory.Backend) Option {
	return func(a *Agent) { a.memory = backend }
}

// WithRetriever enables retrieval-augmented context assembly.
func WithRetriever(r rag.Retriever) Option {
	return func(a *Agent) { a.retriever = r }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithMaxToolIterations bounds tool rounds per turn; the provider is
// called at most n+1 times.
func WithMaxToolIterations(n int) Option {
	return func(a *Agent) { a.maxToolIterations = n }
}

// WithToolTimeout bounds each individual tool invocation.
func WithToolTimeout(d time.Duration) Option {
	return func(a *Agent) { a.toolTimeout = d }
}

// WithMemoryWindow limits how many history messages are loaded per turn.
func WithMemoryWindow(n int) Option {
	return func(a *Agent) { a.memoryWindow = n }
}

// WithSummaryTrigger sets the message budget above which session
// history is compacted after a successful turn.
func WithSummaryTrigger(n int) Option {
	return func(a *Agent) { a.summaryTrigger = n }
}

// WithRetrievalTopK sets how many chunks each retrieval query requests.
func WithRetrievalTopK(k int) Option {
	return func(a *Agent) { a.retrievalTopK = k }
}

// New creates an Agent that generates with model through p. A volatile
// in-process memory backend is used unless WithMemory is given.
func New(p provider.Provider, model string, opts ...Option) (*Agent, error) {
	if p == nil {
		return nil, agentkit.NewConfigurationError("provider is required")
	}
	if model == "" {
		return nil, agentkit.NewConfigurationError("model is required")
	}

	a := &Agent{
		provider:          p,
		model:             model,
		gen:               provider.DefaultGenerationConfig(),
		tools:             make(map[string]tool.Tool),
		logger:            zerolog.Nop(),
		maxToolIterations: DefaultMaxToolIterations,
		toolTimeout:       DefaultToolTimeout,
		memoryWindow:      DefaultMemoryWindow,
		summaryTrigger:    DefaultSummaryTrigger,
		retrievalTopK:     DefaultRetrievalTopK,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.maxToolIterations < 0 {
		return nil, agentkit.NewConfigurationError("max tool iterations must be >= 0, got %d", a.maxToolIterations)
	}
	if a.toolTimeout <= 0 {
		return nil, agentkit.NewConfigurationError("tool timeout must be positive, got %s", a.toolTimeout)
	}
	if a.memory == nil {
		a.memory = memory.NewInMemory()
	}

	observability.InitMetrics()
	return a, nil
}

// RunOption configures a single turn.
type RunOption func(*runOptions)

type runOptions struct {
	sessionID string
	userID    string
	metadata  map[string]string
	schema    json.RawMessage
}

// WithSessionID continues an existing session instead of starting a new
// one.
func WithSessionID(id string) RunOption {
	return func(ro *runOptions) { ro.sessionID = id }
}

// WithUserID attributes the turn to a user; it is passed through to
// tool invocations.
func WithUserID(id string) RunOption {
	return func(ro *runOptions) { ro.userID = id }
}

// WithRunMetadata passes ambient key/value data through to tool
// invocations.
func WithRunMetadata(md map[string]string) RunOption {
	return func(ro *runOptions) { ro.metadata = md }
}

// WithResponseSchema validates the final output against a JSON Schema;
// validation failure aborts the turn with StructuredOutputError.
func WithResponseSchema(schema json.RawMessage) RunOption {
	return func(ro *runOptions) { ro.schema = schema }
}

// Run executes one turn for a plain text input.
func (a *Agent) Run(ctx context.Context, input string, opts ...RunOption) (*agentkit.AgentResult, error) {
	return a.RunMessages(ctx, []agentkit.Message{agentkit.NewMessage(agentkit.RoleUser, input)}, opts...)
}

// RunMessages executes one turn for pre-built input messages.
func (a *Agent) RunMessages(ctx context.Context, inputs []agentkit.Message, opts ...RunOption) (*agentkit.AgentResult, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	result, err := a.run(ctx, inputs, ro)
	if err != nil {
		observability.RecordTurn("error")
		return nil, err
	}
	observability.RecordTurn("ok")
	return result, nil
}

func (a *Agent) run(ctx context.Context, inputs []agentkit.Message, ro runOptions) (*agentkit.AgentResult, error) {
	start := time.Now()

	sessionID := ro.sessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	history, err := a.memory.Load(ctx, sessionID, a.memoryWindow)
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	working := make([]agentkit.Message, 0, len(history)+len(inputs)+2)
	if a.system != "" {
		working = append(working, agentkit.NewMessage(agentkit.RoleSystem, a.system))
	}
	working = append(working, history...)

	citations, err := a.retrieveContext(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if len(citations) > 0 {
		working = append(working, agentkit.NewMessage(agentkit.RoleSystem, renderContext(citations)))
	}
	working = append(working, inputs...)

	schemas := a.toolSchemas()
	toolCtx := tool.Context{SessionID: sessionID, UserID: ro.userID, Metadata: ro.metadata}

	var (
		allToolCalls []agentkit.ToolCall
		usage        agentkit.Usage
		calls        int
	)

	for iteration := 0; iteration <= a.maxToolIterations; iteration++ {
		resp, err := a.provider.Generate(ctx, provider.Request{
			Model:      a.model,
			Messages:   working,
			Generation: a.gen,
			Tools:      schemas,
		})
		if err != nil {
			return nil, fmt.Errorf("backend generate: %w", err)
		}
		calls++
		accumulateUsage(&usage, resp.Usage)

		working = append(working, agentkit.NewMessage(agentkit.RoleAssistant, resp.Content))

		if len(resp.ToolCalls) == 0 {
			break
		}
		allToolCalls = append(allToolCalls, resp.ToolCalls...)

		results, err := a.executeToolCalls(ctx, resp.ToolCalls, toolCtx)
		if err != nil {
			return nil, err
		}
		working = append(working, results...)
	}

	output := working[len(working)-1].Content

	if len(ro.schema) > 0 {
		canonical, err := validate.Output(output, ro.schema)
		if err != nil {
			return nil, err
		}
		output = string(canonical)
	}

	final := agentkit.NewMessage(agentkit.RoleAssistant, output)
	persisted := make([]agentkit.Message, 0, len(inputs)+1)
	persisted = append(persisted, inputs...)
	persisted = append(persisted, final)

	if err := a.memory.Append(ctx, sessionID, persisted); err != nil {
		return nil, fmt.Errorf("persisting turn: %w", err)
	}
	if err := a.memory.SummarizeIfNeeded(ctx, sessionID, a.summaryTrigger); err != nil {
		return nil, fmt.Errorf("compacting session: %w", err)
	}

	latency := time.Since(start)
	a.logger.Debug().
		Str("session_id", sessionID).
		Int("backend_calls", calls).
		Int("tool_calls", len(allToolCalls)).
		Dur("latency", latency).
		Msg("turn complete")

	return &agentkit.AgentResult{
		OutputText: output,
		Messages:   working,
		ToolCalls:  allToolCalls,
		Usage:      usage,
		Latency:    latency,
		SessionID:  sessionID,
		Citations:  citations,
	}, nil
}

// retrieveContext queries the retriever with the last input message.
func (a *Agent) retrieveContext(ctx context.Context, inputs []agentkit.Message) ([]agentkit.RetrievedChunk, error) {
	if a.retriever == nil || len(inputs) == 0 {
		return nil, nil
	}
	query := inputs[len(inputs)-1].Content
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	chunks, err := a.retriever.Retrieve(ctx, query, a.retrievalTopK)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}
	return chunks, nil
}

// executeToolCalls runs the requested calls strictly in order. An
// unknown tool name yields a tool-role message and execution continues;
// any execution failure or timeout aborts the turn.
func (a *Agent) executeToolCalls(ctx context.Context, calls []agentkit.ToolCall, toolCtx tool.Context) ([]agentkit.Message, error) {
	results := make([]agentkit.Message, 0, len(calls))
	for _, call := range calls {
		t, ok := a.tools[call.Name]
		if !ok {
			a.logger.Warn().Str("tool", call.Name).Msg("tool not found")
			observability.RecordToolCall(call.Name, "not_found", 0)
			results = append(results, toolMessage(call, fmt.Sprintf("tool not found: %s", call.Name)))
			continue
		}

		callStart := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, a.toolTimeout)
		output, err := t.Call(callCtx, call.Arguments, toolCtx)
		cancel()
		elapsed := time.Since(callStart)

		if err != nil {
			observability.RecordToolCall(call.Name, "error", elapsed)
			return nil, &agentkit.ToolExecutionError{Tool: call.Name, Err: err}
		}

		observability.RecordToolCall(call.Name, "ok", elapsed)
		results = append(results, toolMessage(call, output))
	}
	return results, nil
}

// toolSchemas returns provider-facing declarations in registration
// order.
func (a *Agent) toolSchemas() []provider.ToolSchema {
	if len(a.toolOrder) == 0 {
		return nil
	}
	schemas := make([]provider.ToolSchema, 0, len(a.toolOrder))
	for _, name := range a.toolOrder {
		schemas = append(schemas, tool.ProviderSchema(a.tools[name]))
	}
	return schemas
}

func toolMessage(call agentkit.ToolCall, content string) agentkit.Message {
	msg := agentkit.NewMessage(agentkit.RoleTool, content)
	msg.Name = call.Name
	msg.ToolCallID = call.CallID
	return msg
}

// renderContext formats retrieved chunks as one system message.
func renderContext(chunks []agentkit.RetrievedChunk) string {
	rendered := make([]string, len(chunks))
	for i, c := range chunks {
		rendered[i] = fmt.Sprintf("[doc:%s score=%.3f] %s", c.DocumentID, c.Score, c.Text)
	}
	return ragPreamble + strings.Join(rendered, "\n\n")
}

func accumulateUsage(total *agentkit.Usage, u agentkit.Usage) {
	total.InputTokens += u.InputTokens
	total.OutputTokens += u.OutputTokens
	total.TotalTokens += u.TotalTokens
}

// ToolNames returns the registered tool names sorted for display.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
