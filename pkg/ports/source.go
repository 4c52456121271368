package ports

import "context"

// PromptSource defines how the engine retrieves flow prompts.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type PromptSource interface {
	// GetPrompt retrieves the raw text of a flow prompt by ID.
	// Returns domain.ErrPromptNotFound if no prompt exists with that ID.
	GetPrompt(id string) (string, error)

	// ListPrompts returns the IDs of all prompts available in the source.
	// Used for introspection and tooling (e.g. 'convoflow graph').
	ListPrompts() ([]string, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used for hot-reload or dev-mode functionality.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying prompts change.
	// It abstracts away the specific event details, signaling only that a reparse is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
