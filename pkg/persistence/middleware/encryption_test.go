package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/persistence/middleware"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func TestEncryptionMiddleware_RoundTrip(t *testing.T) {
	backend := newMockStore()
	key := generateKey(t)
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})(backend)
	ctx := context.Background()

	state := domain.NewConversationState()
	state.CurrentSectionID = "ask_budget_3"
	state.CollectedData["name"] = "Ravi"
	state.CollectedData["budget"] = 50000.0

	require.NoError(t, store.Save(ctx, "s1", state))

	// The backend must only ever see the opaque envelope.
	stored := backend.stored("s1")
	assert.Equal(t, "encrypted", stored.CurrentSectionID)
	assert.NotContains(t, stored.CollectedData, "name")
	assert.Contains(t, stored.CollectedData, "__encrypted__")

	// Loading restores the real state.
	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "ask_budget_3", loaded.CurrentSectionID)
	assert.Equal(t, "Ravi", loaded.CollectedData["name"])
	assert.Equal(t, 50000.0, loaded.CollectedData["budget"])
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	backend := newMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	// Save with the old key.
	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(backend)
	state := domain.NewConversationState()
	state.CollectedData["name"] = "Asha"
	require.NoError(t, oldStore.Save(ctx, "s1", state))

	// Rotated store must still decrypt via the fallback key.
	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(backend)

	loaded, err := rotated.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", loaded.CollectedData["name"])

	// Without the fallback, decryption must fail.
	strict := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(backend)
	_, err = strict.Load(ctx, "s1")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_RejectsPlainState(t *testing.T) {
	backend := newMockStore()
	ctx := context.Background()

	// A plain state saved directly to the backend must not load through the
	// encryption layer.
	plain := domain.NewConversationState()
	plain.CollectedData["name"] = "leak"
	require.NoError(t, backend.Save(ctx, "s1", plain))

	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(backend)
	_, err := store.Load(ctx, "s1")
	assert.Error(t, err)
}
