package ports

import (
	"context"

	"github.com/convoflow/convoflow/pkg/domain"
)

// ConversationEngine defines the interface for built flows that do not
// maintain per-session state internally. This is the primary interface used
// by adapters (e.g., HTTP, MCP) that manage state externally or per-request.
type ConversationEngine interface {
	// Config exposes the parsed flow structure for introspection.
	Config() *domain.FlowConfig

	// Nodes returns every node in flow order, with objection and global
	// functions injected.
	Nodes() []*domain.Node

	// Node resolves a single node by section ID.
	// Returns domain.ErrNodeNotFound if no such section exists.
	Node(id string) (*domain.Node, error)

	// EntryNode returns the node the conversation starts at.
	EntryNode() (*domain.Node, error)

	// Call invokes a named function against the given state, returning the
	// structured result and the node the conversation should move to. A nil
	// next node means the current node is retained.
	Call(ctx context.Context, state *domain.ConversationState, function string, args map[string]any) (*domain.Result, *domain.Node, error)
}
