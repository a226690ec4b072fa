package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentkit-dev/agentkit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider.Kind)
	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 4, cfg.Agent.MaxToolIterations)
	assert.Equal(t, 30, cfg.Agent.ToolTimeoutSeconds)
	assert.Equal(t, 20, cfg.Agent.MemoryWindow)
	assert.Equal(t, 40, cfg.Agent.SummaryTrigger)
	assert.Equal(t, 5, cfg.Agent.RetrievalTopK)
	assert.Equal(t, "inmemory", cfg.Memory.Kind)
	assert.InDelta(t, 0.2, cfg.Generation.Temperature, 1e-9)
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `
model: custom-model
provider:
  kind: gemini
  api_key: file-key
agent:
  max_tool_iterations: 2
  tool_timeout_seconds: 10
  memory_window: 20
  summary_trigger: 40
  retrieval_top_k: 5
memory:
  kind: sqlite
  sqlite_path: /tmp/sessions.db
retriever:
  kind: hash
  dimensions: 128
  chunk_size: 500
  overlap: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom-model", cfg.Model)
	assert.Equal(t, "gemini", cfg.Provider.Kind)
	assert.Equal(t, "file-key", cfg.Provider.APIKey)
	assert.Equal(t, 2, cfg.Agent.MaxToolIterations)
	assert.Equal(t, "sqlite", cfg.Memory.Kind)
	assert.Equal(t, 128, cfg.Retriever.Dimensions)
}

func TestLoadNonexistentFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")

	var cfgErr *agentkit.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "model: [[[")

	_, err := Load(path)

	var cfgErr *agentkit.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing model", func(c *Config) { c.Model = "" }, "model is required"},
		{"unknown provider", func(c *Config) { c.Provider.Kind = "palm" }, "unknown provider kind"},
		{"unknown memory", func(c *Config) { c.Memory.Kind = "dynamo" }, "unknown memory kind"},
		{"sqlite without path", func(c *Config) { c.Memory.Kind = "sqlite" }, "sqlite_path"},
		{"redis without addr", func(c *Config) { c.Memory.Kind = "redis" }, "redis_addr"},
		{"embedding without model", func(c *Config) { c.Retriever.Kind = "embedding" }, "embedding_model"},
		{"negative iterations", func(c *Config) { c.Agent.MaxToolIterations = -1 }, "max_tool_iterations"},
		{"zero timeout", func(c *Config) { c.Agent.ToolTimeoutSeconds = 0 }, "tool_timeout_seconds"},
		{
			"mcp stdio without command",
			func(c *Config) {
				c.MCPServers = []MCPServerConfig{{Name: "srv", Transport: "stdio"}}
			},
			"requires command",
		},
		{
			"mcp unsupported transport",
			func(c *Config) {
				c.MCPServers = []MCPServerConfig{{Name: "srv", Transport: "grpc"}}
			},
			"unsupported transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()

			var cfgErr *agentkit.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Model = "saved-model"

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-model", loaded.Model)
}

func TestAgentConfigToolTimeout(t *testing.T) {
	c := AgentConfig{ToolTimeoutSeconds: 12}
	assert.Equal(t, "12s", c.ToolTimeout().String())
}
