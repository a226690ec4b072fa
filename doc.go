// Package agentkit provides the shared data model for the agentkit
// runtime: chat messages, tool calls, retrieval chunks, usage telemetry,
// and the error taxonomy used across providers, tools, memory backends,
// and the orchestration loop.
//
// The runtime itself lives in pkg/agent; pluggable collaborators live in
// pkg/provider (model backends), pkg/memory (session history),
// pkg/rag (retrieval), and pkg/tool (invocable capabilities).
package agentkit
