package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
)

func TestShouldActivateCondition_SkipsFalsyStoredValues(t *testing.T) {
	config, _, _ := newFactories(t)
	state := domain.NewConversationState()
	sm := flow.NewStateManager(state)

	condition := config.Section("if_yes_interested_2")
	require.NotEmpty(t, condition.Required)

	// A false stored on the condition's own field is not decisive; lookup
	// falls through to the parent question's fields.
	sm.StoreField(condition.Required[0], false)
	sm.StoreField("budget", "yes, works for me")

	tm := flow.NewTransitionManager(config, sm)
	assert.True(t, tm.ShouldActivateCondition(condition, nil))
}

func TestShouldActivateCondition_SkipsBlankStrings(t *testing.T) {
	config, _, _ := newFactories(t)
	state := domain.NewConversationState()
	sm := flow.NewStateManager(state)

	condition := config.Section("if_yes_interested_2")

	sm.StoreField(condition.Required[0], "   ")
	sm.StoreField("budget", "sure")

	tm := flow.NewTransitionManager(config, sm)
	assert.True(t, tm.ShouldActivateCondition(condition, nil))
}

func TestShouldActivateCondition_ParentDecline(t *testing.T) {
	config, _, _ := newFactories(t)
	state := domain.NewConversationState()
	sm := flow.NewStateManager(state)

	condition := config.Section("if_yes_interested_2")

	sm.StoreField(condition.Required[0], false)
	sm.StoreField("budget", "that is too much for me")

	tm := flow.NewTransitionManager(config, sm)
	assert.False(t, tm.ShouldActivateCondition(condition, nil))
}
