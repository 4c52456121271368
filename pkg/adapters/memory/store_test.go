package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/adapters/memory"
	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	state := domain.NewConversationState()
	state.CollectedData["name"] = "Ravi"
	require.NoError(t, store.Save(ctx, "s1", state))

	// Mutating the original after Save must not affect the stored copy.
	state.CollectedData["name"] = "changed"

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ravi", loaded.CollectedData["name"])

	// Mutating a loaded copy must not affect subsequent loads.
	loaded.CollectedData["name"] = "also changed"
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ravi", again.CollectedData["name"])
}
