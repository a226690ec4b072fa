package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Descriptor is a tool declaration discovered from an MCP server.
type Descriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// Client is the slice of an MCP connection the toolset needs. The
// concrete implementation lives in mcpgo.go; tests supply fakes.
type Client interface {
	ListTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// Toolset holds the tools discovered from one MCP server. Discovery
// runs once at load time; calls reuse the cached declarations rather
// than re-listing per invocation.
type Toolset struct {
	client Client
	tools  []Tool
}

// LoadToolset lists the server's tools once and binds each to the
// shared client.
func LoadToolset(ctx context.Context, client Client) (*Toolset, error) {
	descriptors, err := client.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing mcp tools: %w", err)
	}

	ts := &Toolset{client: client}
	for _, d := range descriptors {
		ts.tools = append(ts.tools, &boundTool{client: client, descriptor: d})
	}
	return ts, nil
}

// Tools returns the discovered tools in server declaration order.
func (ts *Toolset) Tools() []Tool {
	return ts.tools
}

// Close releases the underlying server connection.
func (ts *Toolset) Close() error {
	return ts.client.Close()
}

// boundTool forwards calls for one discovered declaration to its server.
type boundTool struct {
	client     Client
	descriptor Descriptor
}

func (t *boundTool) Name() string                 { return t.descriptor.Name }
func (t *boundTool) Description() string          { return t.descriptor.Description }
func (t *boundTool) InputSchema() json.RawMessage { return t.descriptor.InputSchema }

func (t *boundTool) Call(ctx context.Context, args map[string]any, _ Context) (string, error) {
	return t.client.CallTool(ctx, t.descriptor.Name, args)
}

var _ Tool = (*boundTool)(nil)
