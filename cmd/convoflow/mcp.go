package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/internal/cli"
	"github.com/convoflow/convoflow/pkg/adapters/mcp"
	"github.com/convoflow/convoflow/pkg/ports"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [prompt]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the flow engine as an MCP Server.
This allows AI agents (like Claude Desktop) to parse prompts, inspect the
flow graph and advance conversations as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		// Configure logger (Stderr, so stdio transport stays clean)
		opts := &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)

		flowOpts := cli.RunOptions{Path: promptPath(cmd, args)}
		flowOpts.PromptID, _ = cmd.Flags().GetString("id")

		engine, err := cli.BuildFlow(flowOpts, logger)
		if err != nil {
			log.Fatalf("Error initializing flow: %v", err)
		}

		builder := func(prompt string) (ports.ConversationEngine, error) {
			return convoflow.CreateSectionBasedFlow(prompt)
		}

		srv := mcp.NewServer(engine, builder, strings.TrimSpace(convoflow.Version))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			slog.Info("Starting convoflow MCP Server (Stdio)...")
			if err := srv.ServeStdio(); err != nil {
				slog.Error("MCP Server execution failed", "err", err)
				os.Exit(1)
			}
		case "sse":
			slog.Info("Starting convoflow MCP Server (SSE)", "port", port)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil {
				if err != http.ErrServerClosed {
					slog.Error("MCP Server execution failed", "err", err)
					os.Exit(1)
				}
			}
			slog.Info("MCP Server stopped gracefully")
		default:
			log.Fatalf("Unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
