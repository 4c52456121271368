package flow

import (
	"time"

	"github.com/convoflow/convoflow/pkg/domain"
)

// StateManager is a typed accessor over a conversation's mutable state bag.
// It initializes the bag lazily on first use and is the only path through
// which handlers mutate state.
type StateManager struct {
	state *domain.ConversationState
}

// NewStateManager wraps a state bag, initializing it if needed.
func NewStateManager(state *domain.ConversationState) *StateManager {
	if !state.Initialized {
		now := time.Now()
		state.Initialized = true
		state.CollectedData = make(map[string]any)
		state.ConditionsMet = make(map[string]bool)
		state.ObjectionsHandled = nil
		state.ConversationPath = nil
		state.Metadata = make(map[string]any)
		state.StartedAt = now
		state.UpdatedAt = now
	}
	return &StateManager{state: state}
}

// State exposes the underlying bag for persistence.
func (m *StateManager) State() *domain.ConversationState { return m.state }

func (m *StateManager) touch() { m.state.UpdatedAt = time.Now() }

// StoreField records a collected user response.
func (m *StateManager) StoreField(name string, value any) {
	m.state.CollectedData[name] = value
	m.touch()
}

// Field retrieves a collected value, or nil.
func (m *StateManager) Field(name string) any {
	return m.state.CollectedData[name]
}

// HasField reports whether the field has been collected.
func (m *StateManager) HasField(name string) bool {
	_, ok := m.state.CollectedData[name]
	return ok
}

// CollectedData returns a copy of all collected fields.
func (m *StateManager) CollectedData() map[string]any {
	out := make(map[string]any, len(m.state.CollectedData))
	for k, v := range m.state.CollectedData {
		out[k] = v
	}
	return out
}

// SetConditionResult caches a condition evaluation.
func (m *StateManager) SetConditionResult(conditionID string, result bool) {
	m.state.ConditionsMet[conditionID] = result
	m.touch()
}

// ConditionResult returns the cached evaluation and whether one exists.
func (m *StateManager) ConditionResult(conditionID string) (bool, bool) {
	result, ok := m.state.ConditionsMet[conditionID]
	return result, ok
}

// WasConditionMet reports whether the condition evaluated true.
func (m *StateManager) WasConditionMet(conditionID string) bool {
	return m.state.ConditionsMet[conditionID]
}

// RecordObjection appends a handled objection to the history.
func (m *StateManager) RecordObjection(objectionType, details string) {
	m.state.ObjectionsHandled = append(m.state.ObjectionsHandled, domain.ObjectionRecord{
		Type:      objectionType,
		Timestamp: time.Now(),
		Details:   details,
		SectionID: m.state.CurrentSectionID,
	})
	m.touch()
}

// Objections returns a copy of the objection history.
func (m *StateManager) Objections() []domain.ObjectionRecord {
	return append([]domain.ObjectionRecord(nil), m.state.ObjectionsHandled...)
}

// HasHandledObjection reports whether an objection of this type was handled.
func (m *StateManager) HasHandledObjection(objectionType string) bool {
	for _, o := range m.state.ObjectionsHandled {
		if o.Type == objectionType {
			return true
		}
	}
	return false
}

// TransitionTo records navigation into a section, keeping the breadcrumb
// trail and the previous-section pointer used by objection returns.
func (m *StateManager) TransitionTo(sectionID string) {
	m.state.PreviousSectionID = m.state.CurrentSectionID
	m.state.CurrentSectionID = sectionID
	m.state.ConversationPath = append(m.state.ConversationPath, sectionID)
	m.touch()
}

// CurrentSection returns the id of the section being processed, or "".
func (m *StateManager) CurrentSection() string { return m.state.CurrentSectionID }

// PreviousSection returns the previously visited section id, or "".
func (m *StateManager) PreviousSection() string { return m.state.PreviousSectionID }

// Path returns a copy of the breadcrumb trail.
func (m *StateManager) Path() []string {
	return append([]string(nil), m.state.ConversationPath...)
}

// CanReturnToPrevious reports whether back-navigation is possible.
func (m *StateManager) CanReturnToPrevious() bool { return m.state.PreviousSectionID != "" }

// SetMetadata stores auxiliary data.
func (m *StateManager) SetMetadata(key string, value any) {
	m.state.Metadata[key] = value
	m.touch()
}

// Metadata retrieves auxiliary data, or nil.
func (m *StateManager) Metadata(key string) any { return m.state.Metadata[key] }

// MarkEnded flags the conversation as terminated by an end-call function.
func (m *StateManager) MarkEnded() {
	m.state.Ended = true
	m.touch()
}

// Summary returns a compact view of the state for logging.
func (m *StateManager) Summary() map[string]any {
	fields := make([]string, 0, len(m.state.CollectedData))
	for k := range m.state.CollectedData {
		fields = append(fields, k)
	}
	return map[string]any{
		"current_section":      m.state.CurrentSectionID,
		"previous_section":     m.state.PreviousSectionID,
		"collected_fields":     fields,
		"conditions_evaluated": len(m.state.ConditionsMet),
		"objections_handled":   len(m.state.ObjectionsHandled),
		"path_length":          len(m.state.ConversationPath),
		"duration":             m.state.UpdatedAt.Sub(m.state.StartedAt).String(),
	}
}
