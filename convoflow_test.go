package convoflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow"
	"github.com/convoflow/convoflow/pkg/adapters/memory"
	"github.com/convoflow/convoflow/pkg/domain"
)

const salesPrompt = `[Greeting]
Hi! This is Maya from Acme Telecom. May I know your name?

[Budget Question]
Ask the customer for their monthly budget. {{budget}}

[Product Pitch]
Present the premium plan offer and its price.

[If customer says too expensive]
Reassure the customer about cost and long-term value.
`

func TestCreateSectionBasedFlow(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt)
	require.NoError(t, err)

	nodes := f.Nodes()
	require.Len(t, nodes, 3)
	assert.Equal(t, "greeting_0", nodes[0].ID)
	assert.Equal(t, "budget_question_1", nodes[1].ID)
	assert.Equal(t, "product_pitch_2", nodes[2].ID)

	entry, err := f.EntryNode()
	require.NoError(t, err)
	assert.Equal(t, "greeting_0", entry.ID)
}

func TestCreateSectionBasedFlow_EmptyPrompt(t *testing.T) {
	_, err := convoflow.CreateSectionBasedFlow("")
	assert.ErrorIs(t, err, domain.ErrFlowEmpty)
}

func TestFlow_Node(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt)
	require.NoError(t, err)

	node, err := f.Node("budget_question_1")
	require.NoError(t, err)
	assert.Equal(t, "budget_question_1", node.ID)

	terminal, err := f.Node("free_conversation")
	require.NoError(t, err)
	assert.Equal(t, "free_conversation", terminal.ID)

	_, err = f.Node("nope_99")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestFlow_CallWalksTheFlow(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt)
	require.NoError(t, err)

	ctx := context.Background()
	state := domain.NewConversationState()

	entry, err := f.EntryNode()
	require.NoError(t, err)

	node := entry
	for i := 0; i < 10 && node.ID != "free_conversation"; i++ {
		fn := node.Primary()
		require.NotNil(t, fn, "node %s", node.ID)

		args := make(map[string]any, len(fn.Required))
		for _, field := range fn.Required {
			args[field] = "a thoughtful answer"
		}

		result, next, err := f.Call(ctx, state, fn.Name, args)
		require.NoError(t, err)
		require.NotNil(t, result)
		require.NotNil(t, next)
		node = next
	}

	assert.Equal(t, "free_conversation", node.ID, "flow must exhaust into free conversation")
	assert.Contains(t, state.CollectedData, "budget")
}

func TestFlow_CallUnknownFunction(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt)
	require.NoError(t, err)

	_, _, err = f.Call(context.Background(), domain.NewConversationState(), "collect_ghost_9", nil)
	assert.ErrorContains(t, err, "unknown function")
}

func TestFlow_ObjectionFunctionsOnEveryStep(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt)
	require.NoError(t, err)

	for _, node := range f.Nodes() {
		assert.True(t, node.HasFunction("handle_if_customer_says_too_expensive_3"), "node %s", node.ID)
	}
}

func TestFlow_GlobalFunctions(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt,
		convoflow.WithKnowledgeBase(func(ctx context.Context, query string, state *domain.ConversationState) (string, error) {
			return "Plans start at 40 dollars.", nil
		}),
		convoflow.WithEndCall(func(ctx context.Context, reason string, state *domain.ConversationState) error {
			return nil
		}),
	)
	require.NoError(t, err)

	functions := f.Functions()
	assert.Contains(t, functions, "get_knowledge_base_info")
	assert.Contains(t, functions, "end_call")
	assert.NotContains(t, functions, "handover_call")

	state := domain.NewConversationState()
	result, next, err := f.Call(context.Background(), state, "get_knowledge_base_info", map[string]any{"query": "pricing?"})
	require.NoError(t, err)
	assert.Nil(t, next, "global calls stay on the current node")
	assert.Equal(t, "Plans start at 40 dollars.", result.Fields["answer"])

	_, _, err = f.Call(context.Background(), state, "end_call", map[string]any{"reason": "done"})
	require.NoError(t, err)
	assert.True(t, state.Ended)
}

func TestNewFromSource(t *testing.T) {
	source := memory.NewSource(map[string]string{"sales": salesPrompt})

	f, err := convoflow.NewFromSource(source, "sales")
	require.NoError(t, err)
	assert.Len(t, f.Nodes(), 3)

	// A single-prompt source needs no explicit ID.
	f, err = convoflow.NewFromSource(source, "")
	require.NoError(t, err)
	assert.NotNil(t, f.Config())

	_, err = convoflow.NewFromSource(source, "missing")
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}

func TestNewFromSource_AmbiguousPrompt(t *testing.T) {
	source := memory.NewSource(map[string]string{"a": salesPrompt, "b": salesPrompt})

	_, err := convoflow.NewFromSource(source, "")
	assert.ErrorContains(t, err, "prompt ID is required")
}

func TestFlow_Mermaid(t *testing.T) {
	f, err := convoflow.CreateSectionBasedFlow(salesPrompt)
	require.NoError(t, err)

	chart := f.Mermaid(nil)
	assert.Contains(t, chart, "graph TD")
	assert.Contains(t, chart, "greeting_0")
	assert.Contains(t, chart, "budget_question_1")
}

func TestFlow_BranchPathsTerminate(t *testing.T) {
	const branchedPrompt = `[Greeting]
Hi! May I know your name?

[Interest Question]
Are you interested in the premium plan? {{interested}}

[If Yes - Interested]
Walk through the premium plan.

[If No - Not Interested]
Offer the basic plan instead.

[Product Pitch]
Present the selected plan.

[Follow Up Question]
Would you like a brochure? {{brochure}}`

	cases := []struct {
		name      string
		answer    string
		condition string
	}{
		{"affirmative", "yes, absolutely", "if_yes_interested_2"},
		{"negative", "no, thanks", "if_no_not_interested_3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := convoflow.CreateSectionBasedFlow(branchedPrompt)
			require.NoError(t, err)

			ctx := context.Background()
			state := domain.NewConversationState()

			node, err := f.EntryNode()
			require.NoError(t, err)

			visited := make(map[string]bool)
			for i := 0; i < 12 && node.ID != "free_conversation"; i++ {
				require.False(t, visited[node.ID], "section %s revisited", node.ID)
				visited[node.ID] = true

				fn := node.Primary()
				require.NotNil(t, fn, "node %s", node.ID)

				args := make(map[string]any, len(fn.Required))
				for _, field := range fn.Required {
					args[field] = tc.answer
				}

				_, next, err := f.Call(ctx, state, fn.Name, args)
				require.NoError(t, err)
				require.NotNil(t, next)
				node = next
			}

			assert.Equal(t, "free_conversation", node.ID, "branch must run out into free conversation")
			assert.True(t, state.ConditionsMet[tc.condition])
			assert.True(t, visited["product_pitch_4"], "both branches reconverge on the pitch")
		})
	}
}
