package middleware_test

import (
	"context"
	"sync"

	"github.com/convoflow/convoflow/pkg/domain"
)

// mockStore records exactly what reaches the persistence layer, so tests can
// assert on the stored (masked/encrypted) form rather than the live state.
type mockStore struct {
	mu   sync.Mutex
	data map[string]*domain.ConversationState
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]*domain.ConversationState)}
}

func (m *mockStore) Save(ctx context.Context, sessionID string, state *domain.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[sessionID] = state
	return nil
}

func (m *mockStore) Load(ctx context.Context, sessionID string) (*domain.ConversationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}

func (m *mockStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

func (m *mockStore) List(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// stored returns the raw state as the backend received it.
func (m *mockStore) stored(sessionID string) *domain.ConversationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[sessionID]
}
