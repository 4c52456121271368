package cli

import (
	"fmt"
	"log/slog"
	"os"

	convoflow "github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/pkg/adapters/process"
)

// Reserved tool names wired to the flow's global functions when present in
// the tools config.
const (
	toolKnowledgeBase = "knowledge_base"
	toolHandover      = "handover"
	toolEndCall       = "end_call"
)

// BuildFlow exposes flow construction to the command layer.
func BuildFlow(opts RunOptions, logger *slog.Logger) (*convoflow.Flow, error) {
	return createFlow(opts, logger)
}

// createFlow builds a flow from the run options, with standard CLI
// conventions: directory paths are treated as Loam prompt libraries, file
// paths as raw section-based prompts, and a tools config (when found) wires
// external commands to the global functions.
func createFlow(opts RunOptions, logger *slog.Logger) (*convoflow.Flow, error) {
	flowOpts := []convoflow.Option{
		convoflow.WithLogger(logger),
	}
	if opts.Debug {
		flowOpts = append(flowOpts, convoflow.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if opts.Assistant != "" {
		flowOpts = append(flowOpts, convoflow.WithAssistantPrompt(opts.Assistant))
	}

	toolOpts, err := createToolOptions(opts, logger)
	if err != nil {
		return nil, err
	}
	flowOpts = append(flowOpts, toolOpts...)

	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot read prompt path: %w", err)
	}

	if info.IsDir() {
		return convoflow.NewFromRepo(opts.Path, opts.PromptID, flowOpts...)
	}

	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("cannot read prompt file: %w", err)
	}
	return convoflow.CreateSectionBasedFlow(string(data), flowOpts...)
}

// createToolOptions loads the external tool registry and maps the reserved
// tool names onto the flow's global functions.
func createToolOptions(opts RunOptions, logger *slog.Logger) ([]convoflow.Option, error) {
	if opts.ToolsPath == "" {
		return nil, nil
	}

	tools, err := process.LoadTools(opts.ToolsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tools config: %w", err)
	}
	if len(tools) == 0 {
		return nil, nil
	}

	runner := process.NewRunner(
		process.WithRegistry(tools),
		process.WithBaseDir(promptDir(opts.Path)),
	)

	var flowOpts []convoflow.Option
	if runner.Has(toolKnowledgeBase) {
		flowOpts = append(flowOpts, convoflow.WithKnowledgeBase(runner.KnowledgeBase(toolKnowledgeBase)))
		logger.Debug("Wired knowledge base tool", "tool", toolKnowledgeBase)
	}
	if runner.Has(toolHandover) {
		flowOpts = append(flowOpts, convoflow.WithHandover(runner.Handover(toolHandover)))
		logger.Debug("Wired handover tool", "tool", toolHandover)
	}
	if runner.Has(toolEndCall) {
		flowOpts = append(flowOpts, convoflow.WithEndCall(runner.EndCall(toolEndCall)))
		logger.Debug("Wired end-call tool", "tool", toolEndCall)
	}
	return flowOpts, nil
}
