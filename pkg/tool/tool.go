// Package tool defines the callable-tool contract the agent runtime
// dispatches to, a function adapter for registering plain Go functions,
// and a bridge that exposes MCP server tools through the same contract.
package tool

import (
	"context"
	"encoding/json"

	"github.com/agentkit-dev/agentkit/pkg/provider"
)

// Context carries per-invocation ambient data into a tool call. It is
// informational; tools must not require any field to be set.
type Context struct {
	SessionID string
	UserID    string
	Metadata  map[string]string
}

// Tool is a capability the model can invoke by name. Call returns the
// string the runtime appends as the tool-role message; an error aborts
// the turn.
type Tool interface {
	Name() string
	Description() string

	// InputSchema returns the JSON Schema for the tool's arguments.
	InputSchema() json.RawMessage

	Call(ctx context.Context, args map[string]any, tc Context) (string, error)
}

// ProviderSchema converts a tool's declaration into the form sent to a
// generation backend.
func ProviderSchema(t Tool) provider.ToolSchema {
	params := t.InputSchema()
	if len(params) == 0 {
		params = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return provider.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  params,
	}
}
