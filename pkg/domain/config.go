package domain

// FlowConfig is the complete parsed flow: sections partitioned by role, the
// linear flow order, and the indexes used to resolve conditional branches.
//
// A FlowConfig is immutable after parsing and may be shared by any number of
// concurrent conversations; per-conversation data lives in ConversationState.
type FlowConfig struct {
	Instructions *ParsedSection   `json:"instructions,omitempty"`
	Identity     *ParsedSection   `json:"identity,omitempty"`
	Greeting     *ParsedSection   `json:"greeting,omitempty"`
	Questions    []*ParsedSection `json:"questions,omitempty"`
	Conditions   []*ParsedSection `json:"conditions,omitempty"`
	Objections   []*ParsedSection `json:"objections,omitempty"`
	Guidelines   []*ParsedSection `json:"guidelines,omitempty"`
	Pitches      []*ParsedSection `json:"pitches,omitempty"`
	FAQs         []*ParsedSection `json:"faqs,omitempty"`

	// FlowOrder lists the ids of greeting/question/pitch/condition sections in
	// document order. An empty FlowOrder means no flow could be built and the
	// caller should fall back to an unstructured conversation mode.
	FlowOrder []string `json:"flow_order"`

	// AllIDs lists every parsed section id in document order, including the
	// sections excluded from FlowOrder. Branch-target resolution scans this
	// list, not FlowOrder, so that objections can be branch destinations.
	AllIDs []string `json:"all_ids"`

	SectionsByID map[string]*ParsedSection `json:"-"`

	// ConditionsByParent maps a question/pitch id to the condition ids
	// attached to it, in document order.
	ConditionsByParent map[string][]string `json:"conditions_by_parent,omitempty"`

	// ConditionParent maps a condition id back to its parent section id.
	ConditionParent map[string]string `json:"condition_parent,omitempty"`

	// PostConditionByParent and PostConditionByCondition record where the
	// YES/NO branches of a parent reconverge into the main flow.
	PostConditionByParent    map[string]string `json:"post_condition_by_parent,omitempty"`
	PostConditionByCondition map[string]string `json:"post_condition_by_condition,omitempty"`
}

// NewFlowConfig returns an empty config with all maps allocated.
func NewFlowConfig() *FlowConfig {
	return &FlowConfig{
		SectionsByID:             make(map[string]*ParsedSection),
		ConditionsByParent:       make(map[string][]string),
		ConditionParent:          make(map[string]string),
		PostConditionByParent:    make(map[string]string),
		PostConditionByCondition: make(map[string]string),
	}
}

// Section returns the section with the given id, or nil.
func (c *FlowConfig) Section(id string) *ParsedSection {
	if id == "" {
		return nil
	}
	return c.SectionsByID[id]
}

// FirstStep returns the first section of the linear flow, or nil when the
// flow is empty.
func (c *FlowConfig) FirstStep() *ParsedSection {
	if len(c.FlowOrder) == 0 {
		return nil
	}
	return c.SectionsByID[c.FlowOrder[0]]
}

// HasFlow reports whether a usable linear flow was derived from the document.
func (c *FlowConfig) HasFlow() bool {
	return len(c.FlowOrder) > 0
}
