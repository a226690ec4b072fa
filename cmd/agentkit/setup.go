package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentkit-dev/agentkit"
	"github.com/agentkit-dev/agentkit/pkg/agent"
	"github.com/agentkit-dev/agentkit/pkg/config"
	"github.com/agentkit-dev/agentkit/pkg/memory"
	"github.com/agentkit-dev/agentkit/pkg/provider"
	"github.com/agentkit-dev/agentkit/pkg/rag"
	"github.com/agentkit-dev/agentkit/pkg/tool"
)

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	var p provider.Provider
	switch cfg.Provider.Kind {
	case "openai":
		var opts []provider.OpenAIOption
		if cfg.Provider.RateLimitRPS > 0 {
			opts = append(opts, provider.WithRateLimit(cfg.Provider.RateLimitRPS, cfg.Provider.RateLimitBurst))
		}
		p = provider.NewOpenAICompatible(cfg.Provider.BaseURL, cfg.Provider.APIKey, opts...)
	case "openai-sdk":
		p = provider.NewSDK(cfg.Provider.APIKey)
	case "gemini":
		p = provider.NewGemini(cfg.Provider.APIKey, cfg.Provider.BaseURL)
	default:
		return nil, agentkit.NewConfigurationError("unknown provider kind %q", cfg.Provider.Kind)
	}
	return provider.NewInstrumented(p), nil
}

func buildMemory(ctx context.Context, cfg *config.Config) (memory.Backend, func(), error) {
	noop := func() {}
	switch cfg.Memory.Kind {
	case "inmemory":
		return memory.NewInMemory(), noop, nil
	case "sqlite":
		store, err := memory.NewSQLite(cfg.Memory.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		store, err := memory.NewRedis(memory.RedisConfig{
			Addr:       cfg.Memory.RedisAddr,
			Password:   cfg.Memory.RedisPassword,
			DB:         cfg.Memory.RedisDB,
			SessionTTL: time.Duration(cfg.Memory.RedisTTLHours) * time.Hour,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case "firestore":
		store, err := memory.NewFirestore(ctx, cfg.Memory.FirestoreProject)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, agentkit.NewConfigurationError("unknown memory kind %q", cfg.Memory.Kind)
	}
}

func buildRetriever(cfg *config.Config, p provider.Provider) rag.Retriever {
	switch cfg.Retriever.Kind {
	case "hash":
		return rag.NewHashRetriever(
			rag.WithDimensions(cfg.Retriever.Dimensions),
			rag.WithChunking(cfg.Retriever.ChunkSize, cfg.Retriever.Overlap),
		)
	case "embedding":
		return rag.NewEmbeddingRetriever(p, cfg.EmbeddingModel,
			rag.WithEmbeddingChunking(cfg.Retriever.ChunkSize, cfg.Retriever.Overlap))
	default:
		return nil
	}
}

// connectMCPServers loads toolsets from every configured server. Servers
// that fail to connect are skipped with a warning; the session still
// starts with the remaining tools.
func connectMCPServers(ctx context.Context, cfg *config.Config, logger zerolog.Logger) ([]tool.Tool, func()) {
	var tools []tool.Tool
	var toolsets []*tool.Toolset

	for _, srv := range cfg.MCPServers {
		var client tool.Client
		var err error
		switch srv.Transport {
		case "stdio":
			client, err = tool.ConnectStdioMCP(ctx, srv.Command, envSlice(srv.Env), srv.Args...)
		case "http":
			client, err = tool.ConnectHTTPMCP(ctx, srv.URL)
		}
		if err != nil {
			logger.Warn().Str("server", srv.Name).Err(err).Msg("mcp server unavailable, skipping")
			continue
		}

		ts, err := tool.LoadToolset(ctx, client)
		if err != nil {
			logger.Warn().Str("server", srv.Name).Err(err).Msg("mcp tool discovery failed, skipping")
			_ = client.Close()
			continue
		}

		logger.Info().Str("server", srv.Name).Int("tools", len(ts.Tools())).Msg("mcp server connected")
		toolsets = append(toolsets, ts)
		tools = append(tools, ts.Tools()...)
	}

	closeAll := func() {
		for _, ts := range toolsets {
			_ = ts.Close()
		}
	}
	return tools, closeAll
}

func buildAgent(cfg *config.Config, p provider.Provider, store memory.Backend, retriever rag.Retriever, tools []tool.Tool, logger zerolog.Logger) (*agent.Agent, error) {
	opts := []agent.Option{
		agent.WithGeneration(cfg.Generation),
		agent.WithMemory(store),
		agent.WithLogger(logger),
		agent.WithMaxToolIterations(cfg.Agent.MaxToolIterations),
		agent.WithToolTimeout(cfg.Agent.ToolTimeout()),
		agent.WithMemoryWindow(cfg.Agent.MemoryWindow),
		agent.WithSummaryTrigger(cfg.Agent.SummaryTrigger),
		agent.WithRetrievalTopK(cfg.Agent.RetrievalTopK),
	}
	if cfg.SystemPrompt != "" {
		opts = append(opts, agent.WithSystemPrompt(cfg.SystemPrompt))
	}
	if retriever != nil {
		opts = append(opts, agent.WithRetriever(retriever))
	}
	if len(tools) > 0 {
		opts = append(opts, agent.WithTools(tools...))
	}
	return agent.New(p, cfg.Model, opts...)
}

// indexDocuments loads each file as one document keyed by its base name.
func indexDocuments(ctx context.Context, retriever rag.Retriever, paths []string) error {
	docs := make([]agentkit.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		docs = append(docs, agentkit.Document{ID: path, Text: string(data)})
	}
	return retriever.AddDocuments(ctx, docs)
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
