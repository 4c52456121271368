package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/persistence/middleware"
)

func TestPIIMiddleware_MasksMatchingFields(t *testing.T) {
	backend := newMockStore()
	store := middleware.NewPIIMiddleware([]string{"phone", "email"})(backend)
	ctx := context.Background()

	state := domain.NewConversationState()
	state.CollectedData["name"] = "Asha"
	state.CollectedData["phone_number"] = "9876543210"
	state.CollectedData["contact"] = map[string]any{
		"email_address": "asha@example.com",
		"city":          "Pune",
	}

	require.NoError(t, store.Save(ctx, "s1", state))

	stored := backend.stored("s1")
	assert.Equal(t, "Asha", stored.CollectedData["name"])
	assert.Equal(t, "***", stored.CollectedData["phone_number"])

	nested := stored.CollectedData["contact"].(map[string]any)
	assert.Equal(t, "***", nested["email_address"])
	assert.Equal(t, "Pune", nested["city"])
}

func TestPIIMiddleware_DoesNotMutateLiveState(t *testing.T) {
	backend := newMockStore()
	store := middleware.NewPIIMiddleware([]string{"phone"})(backend)
	ctx := context.Background()

	state := domain.NewConversationState()
	state.CollectedData["phone"] = "9876543210"

	require.NoError(t, store.Save(ctx, "s1", state))

	// The engine's copy must keep the real value.
	assert.Equal(t, "9876543210", state.CollectedData["phone"])
}
