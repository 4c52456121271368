package ports

import (
	"context"

	"github.com/convoflow/convoflow/pkg/domain"
)

// StateStore defines the interface for persisting conversation state.
// This allows for durable conversations, enabling "Stop & Resume" across
// restarts and replicas.
type StateStore interface {
	// Save persists the state for a given session ID.
	Save(ctx context.Context, sessionID string, state *domain.ConversationState) error

	// Load retrieves the state for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.ConversationState, error)

	// Delete removes the state for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
