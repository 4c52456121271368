package convoflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/aretw0/loam"

	"github.com/convoflow/convoflow/internal/logging"
	"github.com/convoflow/convoflow/internal/presentation/graph"
	loamAdapter "github.com/convoflow/convoflow/pkg/adapters/loam"
	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
	"github.com/convoflow/convoflow/pkg/observability"
	"github.com/convoflow/convoflow/pkg/parser"
	"github.com/convoflow/convoflow/pkg/ports"
)

// Flow is the high-level entry point for the convoflow library: a parsed
// conversational prompt turned into an executable node graph.
//
// A Flow holds no per-session state. Conversation progress lives in
// domain.ConversationState, which callers persist through a StateStore and
// pass into Call; one Flow serves any number of concurrent sessions.
type Flow struct {
	config   *domain.FlowConfig
	parser   *parser.Parser
	handlers *flow.HandlerFactory
	factory  *flow.NodeFactory

	objections *flow.ObjectionManager
	globals    *flow.GlobalFunctionManager

	kbFunc       flow.KnowledgeBaseFunc
	handoverFunc flow.HandoverFunc
	endCallFunc  flow.EndCallFunc

	hooks  domain.LifecycleHooks
	logger *slog.Logger

	assistantPrompt string
	Name            string

	buildOnce sync.Once
	nodes     []*domain.Node
	functions map[string]domain.FunctionSchema
}

var _ ports.ConversationEngine = (*Flow)(nil)

// Option defines a functional option for configuring the Flow.
type Option func(*Flow)

// WithAssistantPrompt prepends an agent identity prompt to every node's
// instructions.
func WithAssistantPrompt(prompt string) Option {
	return func(f *Flow) {
		f.assistantPrompt = prompt
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(f *Flow) {
		f.hooks = hooks
	}
}

// WithMetrics feeds the flow's lifecycle events into prometheus collectors.
// Merges with any hooks registered via WithLifecycleHooks.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Flow) {
		f.hooks = domain.MergeHooks(f.hooks, m.Hooks())
	}
}

// WithLogger sets a custom structured logger for the flow.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Flow) {
		f.logger = logger
	}
}

// WithName sets a descriptive name (used in logs).
func WithName(name string) Option {
	return func(f *Flow) {
		f.Name = name
	}
}

// WithKnowledgeBase installs a get_knowledge_base_info function on every node.
func WithKnowledgeBase(fn flow.KnowledgeBaseFunc) Option {
	return func(f *Flow) {
		f.kbFunc = fn
	}
}

// WithHandover installs a handover_call function on every node.
func WithHandover(fn flow.HandoverFunc) Option {
	return func(f *Flow) {
		f.handoverFunc = fn
	}
}

// WithEndCall installs an end_call function on every node.
func WithEndCall(fn flow.EndCallFunc) Option {
	return func(f *Flow) {
		f.endCallFunc = fn
	}
}

// CreateSectionBasedFlow parses a section-based prompt and builds the
// executable flow graph. It returns domain.ErrFlowEmpty when the prompt
// yields no conversational steps.
func CreateSectionBasedFlow(prompt string, opts ...Option) (*Flow, error) {
	f := &Flow{
		parser: parser.New(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.NewNop()
	}
	if f.Name != "" {
		f.logger = f.logger.With("flow", f.Name)
	}

	config := f.parser.ParsePrompt(prompt)
	if !config.HasFlow() {
		return nil, domain.ErrFlowEmpty
	}
	f.config = config

	f.handlers = flow.NewHandlerFactory(config, f.hooks)
	f.factory = flow.NewNodeFactory(config, f.handlers, f.assistantPrompt)
	f.handlers.Bind(f.factory)

	f.objections = flow.NewObjectionManager(config, f.handlers)
	f.globals = flow.NewGlobalFunctionManager(f.kbFunc, f.handoverFunc, f.endCallFunc)

	f.hooks.EmitFlowParsed(context.Background(), len(config.AllIDs), len(config.FlowOrder))
	f.logger.Info("flow parsed",
		"sections", len(config.AllIDs),
		"steps", len(config.FlowOrder),
		"conditions", len(config.Conditions),
		"objections", len(config.Objections),
	)

	return f, nil
}

// NewFromRepo loads a prompt from a Loam repository on disk and builds its
// flow. The prompt ID defaults to the repo's single prompt when only one
// exists.
func NewFromRepo(repoPath, promptID string, opts ...Option) (*Flow, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// ReadOnly: building a flow never modifies the prompt library.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	source := loamAdapter.New(loam.NewTypedRepository[loamAdapter.PromptMetadata](repo))
	return NewFromSource(source, promptID, append([]Option{WithName(filepath.Base(absPath))}, opts...)...)
}

// NewFromSource loads a prompt from any PromptSource and builds its flow.
func NewFromSource(source ports.PromptSource, promptID string, opts ...Option) (*Flow, error) {
	if promptID == "" {
		ids, err := source.ListPrompts()
		if err != nil {
			return nil, err
		}
		if len(ids) != 1 {
			return nil, fmt.Errorf("prompt ID is required when the source holds %d prompts", len(ids))
		}
		promptID = ids[0]
	}

	prompt, err := source.GetPrompt(promptID)
	if err != nil {
		return nil, err
	}
	return CreateSectionBasedFlow(prompt, opts...)
}

// Config exposes the parsed flow structure for introspection.
func (f *Flow) Config() *domain.FlowConfig {
	return f.config
}

// build resolves every node once, injects objection and global functions,
// and indexes functions by name.
func (f *Flow) build() {
	f.buildOnce.Do(func() {
		f.nodes = f.factory.AllNodes()

		// Objection sections are reachable from every step, not part of the
		// sequential order; their nodes exist for direct inspection.
		for _, section := range f.config.Objections {
			f.factory.NodeForSection(section)
		}

		f.objections.InjectIntoNodes(f.nodes)
		f.globals.InjectIntoNodes(f.nodes)

		terminal := f.factory.FreeConversationNode()
		f.globals.InjectIntoNodes([]*domain.Node{terminal})

		f.functions = make(map[string]domain.FunctionSchema)
		for _, node := range append(append([]*domain.Node{}, f.nodes...), terminal) {
			for _, fn := range node.Functions {
				if _, seen := f.functions[fn.Name]; !seen {
					f.functions[fn.Name] = fn
				}
			}
		}
		for _, section := range f.config.Objections {
			node := f.factory.NodeForSection(section)
			for _, fn := range node.Functions {
				if _, seen := f.functions[fn.Name]; !seen {
					f.functions[fn.Name] = fn
				}
			}
		}
	})
}

// Nodes returns every flow-step node in order, with objection and global
// functions injected.
func (f *Flow) Nodes() []*domain.Node {
	f.build()
	return f.nodes
}

// Node resolves a single node by section ID.
func (f *Flow) Node(id string) (*domain.Node, error) {
	f.build()
	if id == "free_conversation" {
		return f.factory.FreeConversationNode(), nil
	}
	node := f.factory.NodeByID(id)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return node, nil
}

// EntryNode returns the node the conversation starts at: the greeting when
// present, otherwise the first flow step.
func (f *Flow) EntryNode() (*domain.Node, error) {
	f.build()
	first := f.config.FirstStep()
	if first == nil {
		return nil, domain.ErrFlowEmpty
	}
	return f.factory.NodeForSection(first), nil
}

// Call invokes a named function against the given state. A nil next node in
// the return means the conversation stays on its current node.
func (f *Flow) Call(ctx context.Context, state *domain.ConversationState, function string, args map[string]any) (*domain.Result, *domain.Node, error) {
	f.build()
	schema, ok := f.functions[function]
	if !ok {
		return nil, nil, fmt.Errorf("unknown function %q", function)
	}

	f.logger.Debug("function call", "function", function, "section", state.CurrentSectionID)
	return schema.Handler(ctx, args, state)
}

// Functions returns the schemas of every callable function, indexed by name.
func (f *Flow) Functions() map[string]domain.FunctionSchema {
	f.build()
	out := make(map[string]domain.FunctionSchema, len(f.functions))
	for name, fn := range f.functions {
		out[name] = fn
	}
	return out
}

// Mermaid renders the flow graph as a Mermaid flowchart. A nil state omits
// the session overlay.
func (f *Flow) Mermaid(state *domain.ConversationState) string {
	var overlay *graph.Overlay
	if state != nil {
		overlay = &graph.Overlay{
			VisitedSections: state.ConversationPath,
			CurrentSection:  state.CurrentSectionID,
		}
	}
	return graph.GenerateMermaid(f.config, overlay)
}
