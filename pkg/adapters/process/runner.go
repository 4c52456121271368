// Package process bridges flow-global functions to external commands.
//
// Conversation flows expose knowledge-base lookup, human handover and call
// termination as functions callable from any node. This adapter lets those
// functions be served by local processes declared in a tools.yaml allow-list,
// so a flow can shell out to a retrieval script or a telephony CLI without
// the engine knowing anything about them.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
)

// Runner executes registered external commands. It follows a strict registry
// pattern: only commands declared up front can run, never caller-supplied
// command lines.
type Runner struct {
	registry map[string]ToolConfig
	baseDir  string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(tools map[string]ToolConfig) RunnerOption {
	return func(r *Runner) {
		for name, tool := range tools {
			r.registry[name] = tool
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new process runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]ToolConfig),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = ToolConfig{Name: name, Command: command, Args: args}
}

// Has reports whether a tool with the given name is registered.
func (r *Runner) Has(name string) bool {
	_, ok := r.registry[name]
	return ok
}

// Execute runs the named tool and returns its trimmed stdout.
//
// Arguments are passed as CONVOFLOW_ARG_* environment variables rather than
// command-line flags, which prevents flag injection from collected user
// input. Complex values are JSON-encoded.
func (r *Runner) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, ok := r.registry[name]
	if !ok {
		return "", fmt.Errorf("process tool not registered: %s", name)
	}

	cmd := exec.CommandContext(ctx, tool.Command, tool.Args...)
	cmd.Dir = r.baseDir

	env := cmd.Environ()
	for k, v := range tool.Environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	for k, v := range args {
		env = append(env, fmt.Sprintf("CONVOFLOW_ARG_%s=%s", strings.ToUpper(k), encodeArg(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tool %q failed: %w (stderr: %s)", name, err, strings.TrimSpace(stderr.String()))
	}

	return strings.TrimSpace(stdout.String()), nil
}

// KnowledgeBase returns a flow knowledge-base function backed by the named
// tool. The tool receives the query as CONVOFLOW_ARG_QUERY and its stdout is
// returned as the answer; if the output is a JSON object with an "answer"
// key, that value is used instead.
func (r *Runner) KnowledgeBase(name string) flow.KnowledgeBaseFunc {
	return func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
		out, err := r.Execute(ctx, name, map[string]any{
			"query":   query,
			"section": state.CurrentSectionID,
		})
		if err != nil {
			return "", err
		}
		if answer, ok := extractJSONField(out, "answer"); ok {
			return answer, nil
		}
		return out, nil
	}
}

// Handover returns a flow handover function backed by the named tool. The
// collected conversation data is passed as CONVOFLOW_ARG_COLLECTED (JSON).
func (r *Runner) Handover(name string) flow.HandoverFunc {
	return func(ctx context.Context, reason string, state *domain.ConversationState) error {
		_, err := r.Execute(ctx, name, map[string]any{
			"reason":    reason,
			"section":   state.CurrentSectionID,
			"collected": state.CollectedData,
		})
		return err
	}
}

// EndCall returns a flow end-call function backed by the named tool.
func (r *Runner) EndCall(name string) flow.EndCallFunc {
	return func(ctx context.Context, reason string, state *domain.ConversationState) error {
		_, err := r.Execute(ctx, name, map[string]any{
			"reason":  reason,
			"section": state.CurrentSectionID,
		})
		return err
	}
}

func encodeArg(v any) string {
	switch v.(type) {
	case string, int, int64, float64, bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}

func extractJSONField(out, key string) (string, bool) {
	if !strings.HasPrefix(out, "{") || !strings.HasSuffix(out, "}") {
		return "", false
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return "", false
	}
	if v, ok := payload[key].(string); ok {
		return v, true
	}
	return "", false
}
