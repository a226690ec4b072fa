// Package config loads runtime configuration from a YAML file with
// environment-variable fallbacks for credentials.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/agentkit-dev/agentkit"
	"github.com/agentkit-dev/agentkit/pkg/provider"
)

// Config is the top-level runtime configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`

	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model"`
	SystemPrompt   string `yaml:"system_prompt"`

	Generation provider.GenerationConfig `yaml:"generation"`

	Agent     AgentConfig     `yaml:"agent"`
	Memory    MemoryConfig    `yaml:"memory"`
	Retriever RetrieverConfig `yaml:"retriever"`

	MCPServers []MCPServerConfig `yaml:"mcp_servers"`

	Observability ObservabilityConfig `yaml:"observability"`
}

// ProviderConfig selects and credentials a generation backend.
type ProviderConfig struct {
	// Kind is one of openai, openai-sdk, gemini.
	Kind    string `yaml:"kind"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`

	// RateLimitRPS caps outgoing requests per second; 0 disables.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// AgentConfig tunes the turn loop.
type AgentConfig struct {
	MaxToolIterations  int `yaml:"max_tool_iterations"`
	ToolTimeoutSeconds int `yaml:"tool_timeout_seconds"`
	MemoryWindow       int `yaml:"memory_window"`
	SummaryTrigger     int `yaml:"summary_trigger"`
	RetrievalTopK      int `yaml:"retrieval_top_k"`
}

// ToolTimeout returns the configured per-call timeout as a duration.
func (c AgentConfig) ToolTimeout() time.Duration {
	return time.Duration(c.ToolTimeoutSeconds) * time.Second
}

// MemoryConfig selects a session store.
type MemoryConfig struct {
	// Kind is one of inmemory, sqlite, redis, firestore.
	Kind string `yaml:"kind"`

	// SQLitePath is the database file for the sqlite store.
	SQLitePath string `yaml:"sqlite_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisTTLHours int    `yaml:"redis_ttl_hours"`

	FirestoreProject string `yaml:"firestore_project"`

	// RetentionDays prunes sessions idle longer than this; 0 disables
	// the janitor.
	RetentionDays int    `yaml:"retention_days"`
	SweepSchedule string `yaml:"sweep_schedule"`
}

// RetrieverConfig selects and tunes a retriever.
type RetrieverConfig struct {
	// Kind is one of none, hash, embedding.
	Kind       string `yaml:"kind"`
	Dimensions int    `yaml:"dimensions"`
	ChunkSize  int    `yaml:"chunk_size"`
	Overlap    int    `yaml:"overlap"`
}

// MCPServerConfig describes one remote tool server.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	Transport string            `yaml:"transport"` // stdio or http
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env"`
	URL       string            `yaml:"url"`
}

// ObservabilityConfig tunes metrics and tracing.
type ObservabilityConfig struct {
	MetricsPort    int    `yaml:"metrics_port"`
	TracingEnabled bool   `yaml:"tracing_enabled"`
	TraceExporter  string `yaml:"trace_exporter"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Kind:    "openai",
			BaseURL: "https://api.openai.com/v1",
		},
		Model:      "gpt-4o-mini",
		Generation: provider.DefaultGenerationConfig(),
		Agent: AgentConfig{
			MaxToolIterations:  4,
			ToolTimeoutSeconds: 30,
			MemoryWindow:       20,
			SummaryTrigger:     40,
			RetrievalTopK:      5,
		},
		Memory:    MemoryConfig{Kind: "inmemory", SweepSchedule: "@hourly"},
		Retriever: RetrieverConfig{Kind: "none", Dimensions: 64, ChunkSize: 500, Overlap: 50},
		Observability: ObservabilityConfig{
			MetricsPort:   9090,
			TraceExporter: "stdout",
		},
	}
}

// Load reads path, overlays it on the defaults, fills credentials from
// the environment, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, agentkit.NewConfigurationError("reading config file: %v", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, agentkit.NewConfigurationError("parsing config file: %v", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Provider.APIKey == "" {
		switch c.Provider.Kind {
		case "gemini":
			c.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			c.Provider.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Memory.FirestoreProject == "" {
		c.Memory.FirestoreProject = os.Getenv("GCP_PROJECT")
	}
	if c.Memory.RedisAddr == "" {
		c.Memory.RedisAddr = os.Getenv("REDIS_ADDR")
	}
}

// Validate checks cross-field consistency. Failures are reported as
// ConfigurationError.
func (c *Config) Validate() error {
	if c.Model == "" {
		return agentkit.NewConfigurationError("model is required")
	}

	switch c.Provider.Kind {
	case "openai", "openai-sdk", "gemini":
	default:
		return agentkit.NewConfigurationError("unknown provider kind %q", c.Provider.Kind)
	}

	switch c.Memory.Kind {
	case "inmemory", "sqlite", "redis", "firestore":
	default:
		return agentkit.NewConfigurationError("unknown memory kind %q", c.Memory.Kind)
	}
	if c.Memory.Kind == "sqlite" && c.Memory.SQLitePath == "" {
		return agentkit.NewConfigurationError("sqlite memory requires sqlite_path")
	}
	if c.Memory.Kind == "redis" && c.Memory.RedisAddr == "" {
		return agentkit.NewConfigurationError("redis memory requires redis_addr")
	}
	if c.Memory.Kind == "firestore" && c.Memory.FirestoreProject == "" {
		return agentkit.NewConfigurationError("firestore memory requires firestore_project")
	}

	switch c.Retriever.Kind {
	case "", "none", "hash", "embedding":
	default:
		return agentkit.NewConfigurationError("unknown retriever kind %q", c.Retriever.Kind)
	}
	if c.Retriever.Kind == "embedding" && c.EmbeddingModel == "" {
		return agentkit.NewConfigurationError("embedding retriever requires embedding_model")
	}

	if c.Agent.MaxToolIterations < 0 {
		return agentkit.NewConfigurationError("max_tool_iterations must be >= 0")
	}
	if c.Agent.ToolTimeoutSeconds <= 0 {
		return agentkit.NewConfigurationError("tool_timeout_seconds must be positive")
	}

	for _, srv := range c.MCPServers {
		switch srv.Transport {
		case "stdio":
			if srv.Command == "" {
				return agentkit.NewConfigurationError("mcp server %q: stdio transport requires command", srv.Name)
			}
		case "http":
			if srv.URL == "" {
				return agentkit.NewConfigurationError("mcp server %q: http transport requires url", srv.Name)
			}
		default:
			return agentkit.NewConfigurationError("mcp server %q: unsupported transport %q", srv.Name, srv.Transport)
		}
	}

	return nil
}

// Save writes the configuration back to a YAML file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return agentkit.NewConfigurationError("encoding config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return agentkit.NewConfigurationError("writing config file: %v", err)
	}
	return nil
}
