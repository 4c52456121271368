package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFlowParsed    EventType = "flow_parsed"
	EventNodeEnter     EventType = "node_enter"
	EventHandlerCalled EventType = "handler_called"
	EventReprompt      EventType = "reprompt"
	EventObjection     EventType = "objection"
	EventFlowEnded     EventType = "flow_ended"
)

// FlowEvent describes a completed parse.
type FlowEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	SectionCount int       `json:"section_count"`
	StepCount    int       `json:"step_count"`
}

// NodeEvent describes entry into a node or a handler invocation on it.
type NodeEvent struct {
	Timestamp   time.Time   `json:"timestamp"`
	NodeID      string      `json:"node_id"`
	SectionType SectionType `json:"section_type"`
	Function    string      `json:"function,omitempty"`
}

// LifecycleHooks defines optional callbacks for observability. All hooks may
// be nil; handlers invoke them synchronously, so they must not block.
type LifecycleHooks struct {
	OnFlowParsed    func(context.Context, *FlowEvent)
	OnNodeEnter     func(context.Context, *NodeEvent)
	OnHandlerCalled func(context.Context, *NodeEvent)
	OnReprompt      func(context.Context, *NodeEvent)
	OnObjection     func(context.Context, *NodeEvent)
}

// MergeHooks fans each event out to every hook set, in order.
func MergeHooks(hooks ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnFlowParsed: func(ctx context.Context, e *FlowEvent) {
			for _, h := range hooks {
				if h.OnFlowParsed != nil {
					h.OnFlowParsed(ctx, e)
				}
			}
		},
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnHandlerCalled: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnHandlerCalled != nil {
					h.OnHandlerCalled(ctx, e)
				}
			}
		},
		OnReprompt: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnReprompt != nil {
					h.OnReprompt(ctx, e)
				}
			}
		},
		OnObjection: func(ctx context.Context, e *NodeEvent) {
			for _, h := range hooks {
				if h.OnObjection != nil {
					h.OnObjection(ctx, e)
				}
			}
		},
	}
}

// EmitFlowParsed reports a completed parse.
func (h LifecycleHooks) EmitFlowParsed(ctx context.Context, sectionCount, stepCount int) {
	if h.OnFlowParsed == nil {
		return
	}
	h.OnFlowParsed(ctx, &FlowEvent{Timestamp: time.Now(), SectionCount: sectionCount, StepCount: stepCount})
}

func (h LifecycleHooks) EmitNodeEnter(ctx context.Context, node *Node) {
	if h.OnNodeEnter == nil || node == nil {
		return
	}
	h.OnNodeEnter(ctx, &NodeEvent{Timestamp: time.Now(), NodeID: node.ID, SectionType: node.SectionType})
}

func (h LifecycleHooks) EmitHandlerCalled(ctx context.Context, section *ParsedSection, fn string) {
	if h.OnHandlerCalled == nil || section == nil {
		return
	}
	h.OnHandlerCalled(ctx, &NodeEvent{Timestamp: time.Now(), NodeID: section.ID, SectionType: section.Type, Function: fn})
}

func (h LifecycleHooks) EmitReprompt(ctx context.Context, section *ParsedSection) {
	if h.OnReprompt == nil || section == nil {
		return
	}
	h.OnReprompt(ctx, &NodeEvent{Timestamp: time.Now(), NodeID: section.ID, SectionType: section.Type})
}

func (h LifecycleHooks) EmitObjection(ctx context.Context, section *ParsedSection) {
	if h.OnObjection == nil || section == nil {
		return
	}
	h.OnObjection(ctx, &NodeEvent{Timestamp: time.Now(), NodeID: section.ID, SectionType: section.Type})
}
