package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
)

func TestStateManager_InitializesZeroValueState(t *testing.T) {
	state := &domain.ConversationState{}
	sm := flow.NewStateManager(state)

	assert.True(t, state.Initialized)
	assert.NotNil(t, state.CollectedData)
	assert.NotNil(t, state.ConditionsMet)
	assert.False(t, state.StartedAt.IsZero())

	sm.StoreField("name", "Asha")
	assert.Equal(t, "Asha", sm.Field("name"))
	assert.True(t, sm.HasField("name"))
	assert.Nil(t, sm.Field("missing"))
}

func TestStateManager_TransitionTracksPathAndPrevious(t *testing.T) {
	sm := flow.NewStateManager(domain.NewConversationState())

	assert.False(t, sm.CanReturnToPrevious())

	sm.TransitionTo("greeting_0")
	sm.TransitionTo("budget_question_1")

	assert.Equal(t, "budget_question_1", sm.CurrentSection())
	assert.Equal(t, "greeting_0", sm.PreviousSection())
	assert.True(t, sm.CanReturnToPrevious())
	assert.Equal(t, []string{"greeting_0", "budget_question_1"}, sm.Path())
}

func TestStateManager_ConditionCache(t *testing.T) {
	sm := flow.NewStateManager(domain.NewConversationState())

	_, cached := sm.ConditionResult("cond_1")
	assert.False(t, cached)

	sm.SetConditionResult("cond_1", true)
	met, cached := sm.ConditionResult("cond_1")
	assert.True(t, cached)
	assert.True(t, met)
	assert.True(t, sm.WasConditionMet("cond_1"))
	assert.False(t, sm.WasConditionMet("cond_2"))
}

func TestStateManager_ObjectionHistory(t *testing.T) {
	sm := flow.NewStateManager(domain.NewConversationState())
	sm.TransitionTo("pitch_2")

	sm.RecordObjection("too_expensive", "price concern")

	require.Len(t, sm.Objections(), 1)
	record := sm.Objections()[0]
	assert.Equal(t, "too_expensive", record.Type)
	assert.Equal(t, "price concern", record.Details)
	assert.Equal(t, "pitch_2", record.SectionID)
	assert.True(t, sm.HasHandledObjection("too_expensive"))
	assert.False(t, sm.HasHandledObjection("no_time"))
}

func TestStateManager_CollectedDataReturnsCopy(t *testing.T) {
	sm := flow.NewStateManager(domain.NewConversationState())
	sm.StoreField("city", "Pune")

	snapshot := sm.CollectedData()
	snapshot["city"] = "Mumbai"

	assert.Equal(t, "Pune", sm.Field("city"))
}

func TestStateManager_MarkEnded(t *testing.T) {
	state := domain.NewConversationState()
	sm := flow.NewStateManager(state)

	sm.MarkEnded()
	assert.True(t, state.Ended)
}
