package domain

// SectionType classifies what role a section plays in the conversation.
type SectionType string

const (
	SectionIdentity     SectionType = "identity"
	SectionGreeting     SectionType = "greeting"
	SectionQuestion     SectionType = "question"
	SectionPitch        SectionType = "pitch"
	SectionCondition    SectionType = "condition"
	SectionObjection    SectionType = "objection"
	SectionGuideline    SectionType = "guideline"
	SectionInstructions SectionType = "instructions"
	SectionFAQ          SectionType = "faq"
)

// ConditionType distinguishes the branch semantics of a condition section.
type ConditionType string

const (
	ConditionYes    ConditionType = "yes"
	ConditionNo     ConditionType = "no"
	ConditionCustom ConditionType = "custom"
)

// FieldType is the inferred type of a collected field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldBoolean FieldType = "boolean"
	FieldNumber  FieldType = "number"
	FieldEnum    FieldType = "enum"
)

// RawSection is a named block of prompt text as it appears in the source
// document, before any classification.
type RawSection struct {
	Name    string `json:"section" yaml:"section"`
	Content string `json:"content" yaml:"content"`
}

// ParsedSection is the enriched, typed representation of a RawSection.
//
// Content is preserved byte-for-byte from the source document. It carries
// multi-language text and {{template}} variables and is emitted verbatim as
// the task payload of the corresponding node, so it must never be rewritten.
type ParsedSection struct {
	ID          string      `json:"id"`
	SectionName string      `json:"section_name"`
	Type        SectionType `json:"type"`
	Content     string      `json:"content"`

	Required          []string             `json:"required,omitempty"`
	FieldTypes        map[string]FieldType `json:"field_types,omitempty"`
	FieldDescriptions map[string]string    `json:"field_descriptions,omitempty"`
	Description       string               `json:"description,omitempty"`

	// NextSectionID is the id of the section that follows this one in the
	// linear flow, or "" at the end of the flow.
	NextSectionID string `json:"next_section_id,omitempty"`

	// Condition-only attributes.
	ConditionType   ConditionType `json:"condition_type,omitempty"`
	YesTarget       string        `json:"yes_target,omitempty"`
	NoTarget        string        `json:"no_target,omitempty"`
	ParentSectionID string        `json:"parent_section_id,omitempty"`

	// Objection-only attributes.
	TriggerKeywords []string `json:"trigger_keywords,omitempty"`
	ReturnTo        string   `json:"return_to,omitempty"`

	// Raw keeps the original extraction for reference/debugging.
	Raw RawSection `json:"-"`
}

// IsFlowStep reports whether the section participates in the linear flow
// order (greeting, question, pitch, condition). Identity, guidelines,
// instructions, objections and FAQs are addressable by id but excluded from
// the default path.
func (s *ParsedSection) IsFlowStep() bool {
	switch s.Type {
	case SectionGreeting, SectionQuestion, SectionPitch, SectionCondition:
		return true
	}
	return false
}

// IsBranchTarget reports whether a condition branch may legally point at this
// section. Only questions, pitches and objections are valid targets.
func (s *ParsedSection) IsBranchTarget() bool {
	switch s.Type {
	case SectionQuestion, SectionPitch, SectionObjection:
		return true
	}
	return false
}
