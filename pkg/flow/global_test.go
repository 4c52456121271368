package flow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
)

func TestGlobalFunctionManager_SchemasFollowConfiguration(t *testing.T) {
	none := flow.NewGlobalFunctionManager(nil, nil, nil)
	assert.Empty(t, none.Schemas())

	kbOnly := flow.NewGlobalFunctionManager(
		func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
			return "", nil
		}, nil, nil)
	require.Len(t, kbOnly.Schemas(), 1)
	assert.Equal(t, "get_knowledge_base_info", kbOnly.Schemas()[0].Name)

	all := flow.NewGlobalFunctionManager(
		func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
			return "", nil
		},
		func(ctx context.Context, reason string, state *domain.ConversationState) error { return nil },
		func(ctx context.Context, reason string, state *domain.ConversationState) error { return nil },
	)
	names := make([]string, 0, 3)
	for _, schema := range all.Schemas() {
		names = append(names, schema.Name)
	}
	assert.Equal(t, []string{"get_knowledge_base_info", "handover_call", "end_call"}, names)
}

func TestGlobalFunctionManager_InjectionIsIdempotent(t *testing.T) {
	manager := flow.NewGlobalFunctionManager(
		func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
			return "answer", nil
		}, nil, nil)

	node := &domain.Node{ID: "greeting_0"}
	manager.InjectIntoNodes([]*domain.Node{node})
	manager.InjectIntoNodes([]*domain.Node{node})

	assert.Len(t, node.Functions, 1)
}

func TestKnowledgeBaseHandler_StaysOnCurrentNode(t *testing.T) {
	var gotQuery string
	manager := flow.NewGlobalFunctionManager(
		func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
			gotQuery = query
			return "Our plans start at 40 dollars.", nil
		}, nil, nil)

	schema := manager.Schemas()[0]
	state := domain.NewConversationState()

	result, next, err := schema.Handler(context.Background(), map[string]any{"query": "what do plans cost?"}, state)
	require.NoError(t, err)
	assert.Nil(t, next, "global functions never advance the flow")
	assert.Equal(t, "what do plans cost?", gotQuery)
	assert.Equal(t, "Our plans start at 40 dollars.", result.Fields["answer"])
}

func TestKnowledgeBaseHandler_WrapsErrors(t *testing.T) {
	manager := flow.NewGlobalFunctionManager(
		func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
			return "", errors.New("index offline")
		}, nil, nil)

	_, _, err := manager.Schemas()[0].Handler(context.Background(), map[string]any{"query": "hi"}, domain.NewConversationState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "knowledge base lookup")
}

func TestEndCallHandler_MarksConversationEnded(t *testing.T) {
	manager := flow.NewGlobalFunctionManager(nil, nil,
		func(ctx context.Context, reason string, state *domain.ConversationState) error { return nil })

	state := domain.NewConversationState()
	_, next, err := manager.Schemas()[0].Handler(context.Background(), map[string]any{"reason": "user asked to stop"}, state)

	require.NoError(t, err)
	assert.Nil(t, next)
	assert.True(t, state.Ended)
	assert.Equal(t, "user asked to stop", state.Metadata["end_reason"])
}

func TestHandoverHandler_RecordsReason(t *testing.T) {
	var handedOver bool
	manager := flow.NewGlobalFunctionManager(nil,
		func(ctx context.Context, reason string, state *domain.ConversationState) error {
			handedOver = true
			return nil
		}, nil)

	state := domain.NewConversationState()
	_, _, err := manager.Schemas()[0].Handler(context.Background(), map[string]any{"reason": "complex billing dispute"}, state)

	require.NoError(t, err)
	assert.True(t, handedOver)
	assert.Equal(t, "complex billing dispute", state.Metadata["handover_reason"])
	assert.False(t, state.Ended, "handover keeps the conversation open")
}
