package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/ports"
)

// AdvanceResponse provides a unified structure across adapters for a single
// conversation step.
type AdvanceResponse struct {
	Result *domain.Result            `json:"result,omitempty" jsonschema_description:"Structured outcome of the handler"`
	Node   *domain.Node              `json:"node,omitempty" jsonschema_description:"The node the conversation moved to (null means stay)"`
	State  *domain.ConversationState `json:"state" jsonschema_description:"The updated conversation state"`
}

// FlowBuilder turns a raw prompt into an engine; used by the parse_flow tool.
type FlowBuilder func(prompt string) (ports.ConversationEngine, error)

// Server wraps a conversation engine and exposes it as an MCP Server.
type Server struct {
	engine    ports.ConversationEngine
	builder   FlowBuilder
	version   string
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine ports.ConversationEngine, builder FlowBuilder, version string) *Server {
	s := &Server{
		engine:    engine,
		builder:   builder,
		version:   version,
		mcpServer: server.NewMCPServer("convoflow-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("CORS Middleware", "method", r.Method, "path", r.URL.Path)
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: parse_flow
	parseTool := mcp.NewTool("parse_flow",
		mcp.WithDescription("Parse a section-based prompt and return the resulting flow structure without registering it."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The raw section-based prompt text")),
	)
	s.mcpServer.AddTool(parseTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := request.RequireString("prompt")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		engine, err := s.builder(prompt)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
		}

		jsonBytes, _ := json.Marshal(engine.Config())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: inspect_graph
	s.mcpServer.AddTool(mcp.NewTool("inspect_graph",
		mcp.WithDescription("Get the full node graph of the active flow for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, _ := json.Marshal(s.engine.Nodes())
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: advance
	advanceTool := mcp.NewTool("advance",
		mcp.WithDescription("Invoke a flow function against a conversation state and return the result, next node and updated state."),
		mcp.WithString("function", mcp.Required(), mcp.Description("Function name (e.g. collect_greeting_0)")),
		mcp.WithString("args", mcp.Description("JSON object of collected arguments")),
		mcp.WithString("state", mcp.Description("JSON conversation state; a fresh one is created when omitted")),
		mcp.WithOutputSchema[AdvanceResponse](),
	)
	s.mcpServer.AddTool(advanceTool, mcp.NewStructuredToolHandler(s.HandleAdvance))
}

// HandleAdvance executes one conversation step for the advance tool.
func (s *Server) HandleAdvance(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (AdvanceResponse, error) {
	function, _ := args["function"].(string)
	if function == "" {
		return AdvanceResponse{}, fmt.Errorf("function is required")
	}

	state := domain.NewConversationState()
	if stateStr, ok := args["state"].(string); ok && stateStr != "" {
		if err := json.Unmarshal([]byte(stateStr), state); err != nil {
			return AdvanceResponse{}, fmt.Errorf("invalid state JSON: %w", err)
		}
	} else if entry, err := s.engine.EntryNode(); err == nil {
		state.CurrentSectionID = entry.ID
		state.ConversationPath = append(state.ConversationPath, entry.ID)
	}

	callArgs := map[string]any{}
	if argsStr, ok := args["args"].(string); ok && argsStr != "" {
		if err := json.Unmarshal([]byte(argsStr), &callArgs); err != nil {
			return AdvanceResponse{}, fmt.Errorf("invalid args JSON: %w", err)
		}
	}

	result, node, err := s.engine.Call(ctx, state, function, callArgs)
	if err != nil {
		return AdvanceResponse{}, fmt.Errorf("advance failed: %w", err)
	}

	return AdvanceResponse{
		Result: result,
		Node:   node,
		State:  state,
	}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: convoflow://graph
	s.mcpServer.AddResource(mcp.NewResource("convoflow://graph", "Active Flow Graph",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.engine.Nodes())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal graph: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "convoflow://graph",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
