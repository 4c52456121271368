package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/convoflow/convoflow/pkg/domain"
)

// HandlerFactory creates the handler attached to each node's function
// schema, memoized by section id. Handlers are pure with respect to the
// factory: all conversation progress lives in the ConversationState passed
// per call, so one factory serves any number of concurrent sessions.
//
// The factory and NodeFactory reference each other (handlers resolve next
// nodes, nodes carry handlers), so construction is two-phase: build both,
// then Bind.
type HandlerFactory struct {
	config *domain.FlowConfig
	hooks  domain.LifecycleHooks
	nodes  *NodeFactory

	mu    sync.Mutex
	cache map[string]domain.Handler
}

func NewHandlerFactory(config *domain.FlowConfig, hooks domain.LifecycleHooks) *HandlerFactory {
	return &HandlerFactory{
		config: config,
		hooks:  hooks,
		cache:  make(map[string]domain.Handler),
	}
}

// Bind wires the node factory. Must be called before any handler runs;
// handlers resolve their next node through it.
func (f *HandlerFactory) Bind(nodes *NodeFactory) { f.nodes = nodes }

// HandlerForSection returns the memoized handler for a section.
func (f *HandlerFactory) HandlerForSection(section *domain.ParsedSection) domain.Handler {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.cache[section.ID]; ok {
		return h
	}

	var h domain.Handler
	switch section.Type {
	case domain.SectionGreeting:
		h = f.greetingHandler(section)
	case domain.SectionCondition:
		h = f.conditionHandler(section)
	case domain.SectionObjection:
		h = f.objectionHandler(section)
	default:
		h = f.collectHandler(section)
	}
	f.cache[section.ID] = h
	return h
}

// greetingHandler serves the greeting: store whatever arrived and always
// advance. The greeting never blocks on missing fields — its fields are
// incidental (a name offered up front), not a gate.
func (f *HandlerFactory) greetingHandler(section *domain.ParsedSection) domain.Handler {
	return func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
		f.hooks.EmitHandlerCalled(ctx, section, functionName(section))

		args = CoerceArgs(section, args)
		sm := NewStateManager(state)
		fields := storePresentFields(sm, section, args)

		result := domain.NewResult(section.ID, fields, section.FieldTypes)
		next := f.advance(sm, section, args)
		f.hooks.EmitNodeEnter(ctx, next)
		return result, next, nil
	}
}

// collectHandler serves question and pitch sections: validate that every
// required field arrived, store them, then advance. A call with missing
// fields does not advance — the handler returns the section's own node again
// so the question is re-asked, and already-complete answers are not lost.
func (f *HandlerFactory) collectHandler(section *domain.ParsedSection) domain.Handler {
	return func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
		f.hooks.EmitHandlerCalled(ctx, section, functionName(section))

		args = CoerceArgs(section, args)
		if missing := missingFields(section, args); len(missing) > 0 {
			f.hooks.EmitReprompt(ctx, section)
			return nil, f.nodes.NodeForSection(section), nil
		}

		sm := NewStateManager(state)
		for _, field := range section.Required {
			sm.StoreField(field, args[field])
		}

		result := domain.NewResult(section.ID, collectedArgs(section, args), section.FieldTypes)
		next := f.advance(sm, section, args)
		f.hooks.EmitNodeEnter(ctx, next)
		return result, next, nil
	}
}

// conditionHandler serves condition sections. The branch decision was
// already taken and cached when the parent question's handler ran; the
// condition handler reports it, stores any incidentally-collected fields,
// and routes a met condition to its branch target (falling back to the
// merge point when no explicit target exists).
func (f *HandlerFactory) conditionHandler(section *domain.ParsedSection) domain.Handler {
	return func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
		f.hooks.EmitHandlerCalled(ctx, section, functionName(section))

		args = CoerceArgs(section, args)
		sm := NewStateManager(state)
		tm := NewTransitionManager(f.config, sm)

		met, cached := sm.ConditionResult(section.ID)
		if !cached {
			// Reached without a cached verdict (e.g. direct entry):
			// evaluate from whatever arguments are at hand.
			met = tm.ShouldActivateCondition(section, args)
		}

		fields := storePresentFields(sm, section, args)

		result := domain.NewResult(section.ID, fields, section.FieldTypes)
		result.ConditionMet = met
		result.ConditionType = section.ConditionType

		next := f.resolveNode(sm, tm.conditionTransition(section))
		f.hooks.EmitNodeEnter(ctx, next)
		return result, next, nil
	}
}

// objectionHandler records the objection and returns the conversation to the
// step it interrupted.
func (f *HandlerFactory) objectionHandler(section *domain.ParsedSection) domain.Handler {
	return func(ctx context.Context, args map[string]any, state *domain.ConversationState) (*domain.Result, *domain.Node, error) {
		f.hooks.EmitHandlerCalled(ctx, section, functionName(section))
		f.hooks.EmitObjection(ctx, section)

		sm := NewStateManager(state)
		sm.RecordObjection(section.ID, objectionDetails(args))
		// Enter the objection on the breadcrumb trail so the interrupted
		// step becomes the previous section and the return resolves to it.
		sm.TransitionTo(section.ID)

		result := domain.NewResult(section.ID, nil, nil)
		result.ObjectionType = section.ID
		result.Handled = true

		tm := NewTransitionManager(f.config, sm)
		next := f.resolveNode(sm, tm.objectionTransition(section))
		f.hooks.EmitNodeEnter(ctx, next)
		return result, next, nil
	}
}

// advance runs the transition for a completed flow step and records the
// move in the conversation path.
func (f *HandlerFactory) advance(sm *StateManager, section *domain.ParsedSection, args map[string]any) *domain.Node {
	tm := NewTransitionManager(f.config, sm)
	return f.resolveNode(sm, tm.NextSection(section, args))
}

// resolveNode maps a transition outcome to its node; a nil section means the
// flow is exhausted and the conversation continues unstructured.
func (f *HandlerFactory) resolveNode(sm *StateManager, next *domain.ParsedSection) *domain.Node {
	if next == nil {
		node := f.nodes.FreeConversationNode()
		sm.TransitionTo(node.ID)
		return node
	}
	sm.TransitionTo(next.ID)
	return f.nodes.NodeForSection(next)
}

func missingFields(section *domain.ParsedSection, args map[string]any) []string {
	var missing []string
	for _, field := range section.Required {
		if isEmptyValue(args[field]) {
			missing = append(missing, field)
		}
	}
	return missing
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

// storePresentFields records the declared fields that actually arrived and
// returns them; absent or blank values are neither stored nor reported.
func storePresentFields(sm *StateManager, section *domain.ParsedSection, args map[string]any) map[string]any {
	fields := make(map[string]any)
	for _, field := range section.Required {
		if isEmptyValue(args[field]) {
			continue
		}
		sm.StoreField(field, args[field])
		fields[field] = args[field]
	}
	return fields
}

// collectedArgs keeps only the declared fields out of whatever the caller
// sent.
func collectedArgs(section *domain.ParsedSection, args map[string]any) map[string]any {
	fields := make(map[string]any, len(section.Required))
	for _, field := range section.Required {
		fields[field] = args[field]
	}
	return fields
}

func objectionDetails(args map[string]any) string {
	for _, key := range []string{"details", "concern", "objection", "response"} {
		if v, ok := args[key]; ok && !isEmptyValue(v) {
			return fmt.Sprintf("%v", v)
		}
	}
	return ""
}
