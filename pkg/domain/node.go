package domain

import "context"

// Handler advances the conversation from a node. It receives the call
// arguments supplied by the dialogue engine and the conversation's mutable
// state, and returns the typed result plus the next node to execute.
//
// Contract:
//   - A question/pitch handler whose required fields are missing returns
//     (nil, currentNode, nil): the engine re-prompts on the same node.
//   - A nil next node from an injected global function means "stay on the
//     current node".
//   - Handlers never block; they perform in-memory work only and are safely
//     abandonable at turn boundaries.
type Handler func(ctx context.Context, args map[string]any, state *ConversationState) (*Result, *Node, error)

// Property describes one input field of a function schema.
type Property struct {
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
}

// FunctionSchema describes a callable function attached to a node: its input
// schema plus the handler that executes it.
type FunctionSchema struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
	Handler     Handler             `json:"-"`
}

// Node is an executable unit of the generated conversation graph.
//
// Instructions carries the composed system context (assistant prompt,
// identity, step directive). Task carries the section's original content
// verbatim — multi-language text and template variables included.
type Node struct {
	ID           string           `json:"id"`
	SectionType  SectionType      `json:"section_type"`
	Instructions string           `json:"instructions"`
	Task         string           `json:"task"`
	Functions    []FunctionSchema `json:"functions,omitempty"`
}

// Primary returns the node's primary function schema (the one generated from
// its own section), or nil for nodes without functions.
func (n *Node) Primary() *FunctionSchema {
	if len(n.Functions) == 0 {
		return nil
	}
	return &n.Functions[0]
}

// Function returns the named function schema attached to this node, or nil.
func (n *Node) Function(name string) *FunctionSchema {
	for i := range n.Functions {
		if n.Functions[i].Name == name {
			return &n.Functions[i]
		}
	}
	return nil
}

// HasFunction reports whether a function with the given name is attached.
func (n *Node) HasFunction(name string) bool {
	return n.Function(name) != nil
}
