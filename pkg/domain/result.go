package domain

// Result is the typed outcome of a handler invocation. Instead of generating
// a nominal type per section, results carry a field map alongside the schema
// that describes it.
//
// When a handler collected nothing, Fields holds the single sentinel
// {"ack": true} so every invocation still produces an inspectable result.
type Result struct {
	SectionID string               `json:"section_id"`
	Fields    map[string]any       `json:"fields"`
	Types     map[string]FieldType `json:"types,omitempty"`

	// Condition outcome, set only by condition handlers.
	ConditionMet  bool          `json:"condition_met,omitempty"`
	ConditionType ConditionType `json:"condition_type,omitempty"`

	// Objection outcome, set only by objection handlers.
	ObjectionType string `json:"objection_type,omitempty"`
	Handled       bool   `json:"handled,omitempty"`
}

// NewResult builds a result for a section, substituting the ack sentinel when
// no fields were collected.
func NewResult(sectionID string, fields map[string]any, types map[string]FieldType) *Result {
	if len(fields) == 0 {
		fields = map[string]any{"ack": true}
		types = map[string]FieldType{"ack": FieldBoolean}
	}
	return &Result{SectionID: sectionID, Fields: fields, Types: types}
}

// Field returns a collected field value, or nil.
func (r *Result) Field(name string) any {
	if r == nil {
		return nil
	}
	return r.Fields[name]
}
