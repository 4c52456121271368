package domain

import "time"

// ObjectionRecord captures one handled objection.
type ObjectionRecord struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details,omitempty"`
	SectionID string    `json:"section_id,omitempty"`
}

// ConversationState is the mutable run-time state of a single conversation.
// It is owned by the calling conversation engine, outlives a single parse,
// and must never be shared across conversations. Handlers mutate it only
// through flow.StateManager.
type ConversationState struct {
	Initialized bool `json:"initialized"`

	// CollectedData holds user responses keyed by field name.
	CollectedData map[string]any `json:"collected_data"`

	// ConditionsMet caches condition evaluation results keyed by condition
	// section id, so a condition node never re-evaluates with a different
	// argument snapshot than its parent's transition saw.
	ConditionsMet map[string]bool `json:"conditions_met"`

	ObjectionsHandled []ObjectionRecord `json:"objections_handled"`

	CurrentSectionID  string   `json:"current_section_id,omitempty"`
	PreviousSectionID string   `json:"previous_section_id,omitempty"`
	ConversationPath  []string `json:"conversation_path"`

	Metadata map[string]any `json:"metadata"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Ended is set when an end-call function terminated the conversation.
	Ended bool `json:"ended,omitempty"`
}

// NewConversationState returns an initialized state bag.
func NewConversationState() *ConversationState {
	now := time.Now()
	return &ConversationState{
		Initialized:   true,
		CollectedData: make(map[string]any),
		ConditionsMet: make(map[string]bool),
		Metadata:      make(map[string]any),
		StartedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy, used by stores to guarantee isolation.
func (s *ConversationState) Clone() *ConversationState {
	out := *s
	out.CollectedData = make(map[string]any, len(s.CollectedData))
	for k, v := range s.CollectedData {
		out.CollectedData[k] = v
	}
	out.ConditionsMet = make(map[string]bool, len(s.ConditionsMet))
	for k, v := range s.ConditionsMet {
		out.ConditionsMet[k] = v
	}
	out.Metadata = make(map[string]any, len(s.Metadata))
	for k, v := range s.Metadata {
		out.Metadata[k] = v
	}
	out.ObjectionsHandled = append([]ObjectionRecord(nil), s.ObjectionsHandled...)
	out.ConversationPath = append([]string(nil), s.ConversationPath...)
	return &out
}
