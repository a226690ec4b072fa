package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPClient connects to an MCP server over stdio or streamable HTTP and
// implements the Client contract.
type MCPClient struct {
	client *mcpclient.Client
}

// ConnectStdioMCP launches command and speaks MCP over its stdio pipes.
func ConnectStdioMCP(ctx context.Context, command string, env []string, args ...string) (*MCPClient, error) {
	c, err := mcpclient.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("creating stdio mcp client: %w", err)
	}
	return initializeMCP(ctx, c)
}

// ConnectHTTPMCP connects to an MCP server at url over streamable HTTP.
func ConnectHTTPMCP(ctx context.Context, url string) (*MCPClient, error) {
	t, err := transport.NewStreamableHTTP(url)
	if err != nil {
		return nil, fmt.Errorf("creating http transport: %w", err)
	}
	c := mcpclient.NewClient(t)
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting http mcp client: %w", err)
	}
	return initializeMCP(ctx, c)
}

func initializeMCP(ctx context.Context, c *mcpclient.Client) (*MCPClient, error) {
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "agentkit",
		Version: "1.0.0",
	}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing mcp connection: %w", err)
	}
	return &MCPClient{client: c}, nil
}

func (m *MCPClient) ListTools(ctx context.Context) ([]Descriptor, error) {
	result, err := m.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}

	descriptors := make([]Descriptor, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema := json.RawMessage(`{"type":"object"}`)
		if data, err := json.Marshal(t.InputSchema); err == nil {
			schema = data
		}
		descriptors = append(descriptors, Descriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return descriptors, nil
}

func (m *MCPClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := m.client.CallTool(ctx, req)
	if err != nil {
		return "", err
	}

	content := flattenContent(result)
	if result.IsError {
		return "", fmt.Errorf("mcp tool %s: %s", name, content)
	}
	return content, nil
}

func (m *MCPClient) Close() error {
	return m.client.Close()
}

// flattenContent joins the textual parts of a call result, encoding any
// non-text parts as JSON.
func flattenContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		switch v := c.(type) {
		case mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		default:
			if data, err := json.Marshal(v); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}

var _ Client = (*MCPClient)(nil)
