package flow_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
	"github.com/convoflow/convoflow/pkg/parser"
)

func TestNodeFactory_MemoizesNodes(t *testing.T) {
	config, _, factory := newFactories(t)

	section := config.Section("budget_question_1")
	require.NotNil(t, section)

	assert.Same(t, factory.NodeForSection(section), factory.NodeForSection(section))
	assert.Same(t, factory.NodeForSection(section), factory.NodeByID("budget_question_1"))
}

func TestNodeFactory_AllNodesFollowFlowOrder(t *testing.T) {
	config, _, factory := newFactories(t)

	nodes := factory.AllNodes()
	require.Len(t, nodes, len(config.FlowOrder))
	for idx, node := range nodes {
		assert.Equal(t, config.FlowOrder[idx], node.ID)
	}
}

func TestNodeFactory_FunctionNamesBySectionType(t *testing.T) {
	config, _, factory := newFactories(t)

	greeting := factory.NodeByID("greeting_0")
	require.NotNil(t, greeting)
	require.Len(t, greeting.Functions, 1)
	assert.Equal(t, "collect_greeting_0", greeting.Functions[0].Name)

	condition := factory.NodeByID("if_yes_interested_2")
	require.NotNil(t, condition)
	assert.Equal(t, "evaluate_if_yes_interested_2", condition.Functions[0].Name)

	objection := factory.NodeForSection(config.Section("if_customer_says_too_expensive_5"))
	require.NotNil(t, objection)
	assert.Equal(t, "handle_if_customer_says_too_expensive_5", objection.Functions[0].Name)
}

func TestNodeFactory_TaskCarriesContentVerbatim(t *testing.T) {
	config, _, factory := newFactories(t)

	pitch := factory.NodeByID("product_pitch_3")
	require.NotNil(t, pitch)
	assert.Equal(t, config.Section("product_pitch_3").Content, pitch.Task)
}

func TestNodeFactory_AssistantPromptPrependsInstructions(t *testing.T) {
	config := parser.New().ParsePrompt(handlerTestPrompt)
	handlers := flow.NewHandlerFactory(config, domain.LifecycleHooks{})
	factory := flow.NewNodeFactory(config, handlers, "You are Maya, a telecom agent.")
	handlers.Bind(factory)

	node := factory.NodeByID("greeting_0")
	require.NotNil(t, node)
	assert.True(t, strings.HasPrefix(node.Instructions, "You are Maya, a telecom agent."))
	assert.Contains(t, node.Instructions, "CURRENT STEP")

	terminal := factory.FreeConversationNode()
	assert.True(t, strings.HasPrefix(terminal.Instructions, "You are Maya, a telecom agent."))
}

func TestNodeFactory_RequiredFieldsBecomeSchemaProperties(t *testing.T) {
	config, _, factory := newFactories(t)

	node := factory.NodeByID("budget_question_1")
	require.NotNil(t, node)

	fn := node.Functions[0]
	assert.Equal(t, []string{"budget"}, fn.Required)
	require.Contains(t, fn.Properties, "budget")
	assert.NotEmpty(t, fn.Properties["budget"].Description)
	assert.Equal(t, config.Section("budget_question_1").FieldTypes["budget"], fn.Properties["budget"].Type)
}

func TestExtractEnumValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"options prefix", "Options: Basic, Premium, Enterprise.\nPick one.", []string{"Basic", "Premium", "Enterprise"}},
		{"slash parens", "Which plan would you like? (monthly / yearly)", []string{"monthly", "yearly"}},
		{"or parens", "Are you interested? (yes or no)", []string{"yes", "no"}},
		{"no options", "Tell me about your day.", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, flow.ExtractEnumValues(tc.content))
		})
	}
}
