package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/agentkit-dev/agentkit/pkg/agent"
	"github.com/agentkit-dev/agentkit/pkg/config"
	"github.com/agentkit-dev/agentkit/pkg/memory"
	"github.com/agentkit-dev/agentkit/pkg/observability"
)

func newChatCmd() *cobra.Command {
	var (
		sessionID string
		userID    string
		docPaths  []string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := newLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Observability.TracingEnabled {
				if err := observability.InitTracing(observability.TracingConfig{
					ServiceName:  "agentkit",
					Enabled:      true,
					ExporterType: cfg.Observability.TraceExporter,
					OTLPEndpoint: cfg.Observability.OTLPEndpoint,
				}); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = observability.ShutdownTracing(shutdownCtx)
				}()
			}

			obsServer := observability.NewServer(cfg.Observability.MetricsPort)
			go func() {
				if err := obsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Debug().Err(err).Msg("observability server stopped")
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = obsServer.Shutdown(shutdownCtx)
			}()

			p, err := buildProvider(cfg)
			if err != nil {
				return err
			}

			store, closeStore, err := buildMemory(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			if pruner, ok := store.(memory.Pruner); ok && cfg.Memory.RetentionDays > 0 {
				janitor := memory.NewJanitor(pruner, cfg.Memory.SweepSchedule,
					time.Duration(cfg.Memory.RetentionDays)*24*time.Hour, logger)
				if err := janitor.Start(); err != nil {
					return err
				}
				defer janitor.Stop()
			}

			retriever := buildRetriever(cfg, p)
			if retriever != nil && len(docPaths) > 0 {
				if err := indexDocuments(ctx, retriever, docPaths); err != nil {
					return err
				}
				logger.Info().Int("documents", len(docPaths)).Msg("indexed documents")
			}

			mcpTools, closeMCP := connectMCPServers(ctx, cfg, logger)
			defer closeMCP()

			a, err := buildAgent(cfg, p, store, retriever, mcpTools, logger)
			if err != nil {
				return err
			}

			return runREPL(ctx, cmd, a, sessionID, userID)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "resume an existing session id")
	cmd.Flags().StringVar(&userID, "user", "", "user id passed through to tools")
	cmd.Flags().StringSliceVar(&docPaths, "docs", nil, "text files to index for retrieval")
	return cmd
}

func runREPL(ctx context.Context, cmd *cobra.Command, a *agent.Agent, sessionID, userID string) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	out := cmd.OutOrStdout()
	if tools := a.ToolNames(); len(tools) > 0 {
		fmt.Fprintf(out, "tools: %s\n", strings.Join(tools, ", "))
	}
	fmt.Fprintln(out, `type "exit" or press Ctrl-D to quit`)

	for {
		if ctx.Err() != nil {
			return nil
		}

		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl-D or Ctrl-C ends the session.
			if errors.Is(err, liner.ErrPromptAborted) {
				return nil
			}
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		line.AppendHistory(input)

		runOpts := []agent.RunOption{}
		if sessionID != "" {
			runOpts = append(runOpts, agent.WithSessionID(sessionID))
		}
		if userID != "" {
			runOpts = append(runOpts, agent.WithUserID(userID))
		}

		result, err := a.Run(ctx, input, runOpts...)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}

		// Keep the whole conversation in one session.
		sessionID = result.SessionID

		fmt.Fprintln(out, result.OutputText)
		for _, c := range result.Citations {
			fmt.Fprintf(out, "  [doc:%s score=%.3f]\n", c.DocumentID, c.Score)
		}
	}
}
