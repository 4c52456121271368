package flow

import (
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// TransitionManager decides the next section to visit from the current one,
// resolving conditional branches and objection return-paths against the
// conversation state.
type TransitionManager struct {
	config *domain.FlowConfig
	state  *StateManager
}

// NewTransitionManager builds a transition manager over a parsed config and
// one conversation's state.
func NewTransitionManager(config *domain.FlowConfig, state *StateManager) *TransitionManager {
	return &TransitionManager{config: config, state: state}
}

// NextSection determines the section to transition to, or nil at end of flow.
func (t *TransitionManager) NextSection(current *domain.ParsedSection, args map[string]any) *domain.ParsedSection {
	switch current.Type {
	case domain.SectionGreeting:
		return t.nextInSequence(current)
	case domain.SectionQuestion, domain.SectionPitch:
		return t.questionTransition(current, args)
	case domain.SectionCondition:
		return t.conditionTransition(current)
	case domain.SectionObjection:
		return t.objectionTransition(current)
	default:
		return t.nextInSequence(current)
	}
}

// questionTransition evaluates the conditions attached to a question/pitch.
// Each evaluation is cached into state so the condition node itself never
// re-evaluates with a different argument snapshot; the branch decision is
// made exactly once per turn. The first matching condition's own section is
// the destination (the condition node still runs, to record the transition),
// otherwise control flows to the parent's precomputed merge point.
func (t *TransitionManager) questionTransition(section *domain.ParsedSection, args map[string]any) *domain.ParsedSection {
	conditionIDs := t.config.ConditionsByParent[section.ID]
	if len(conditionIDs) == 0 {
		return t.nextInSequence(section)
	}

	for _, conditionID := range conditionIDs {
		condition := t.config.Section(conditionID)
		if condition == nil {
			continue
		}
		met := t.evaluateCondition(condition, args)
		t.state.SetConditionResult(conditionID, met)
		if met {
			return condition
		}
	}

	if postID := t.config.PostConditionByParent[section.ID]; postID != "" {
		return t.config.Section(postID)
	}
	return t.skipConditionalBranch(section)
}

// conditionTransition routes a met condition to its branch target; an unmet
// condition (or one without an explicit target) falls through to the merge
// point that reconverges the branches.
func (t *TransitionManager) conditionTransition(section *domain.ParsedSection) *domain.ParsedSection {
	if t.state.WasConditionMet(section.ID) {
		if target := t.branchTargetSection(section); target != nil {
			return target
		}
	}
	if post := t.PostConditionSection(section); post != nil {
		return post
	}
	return t.nextInSequence(section)
}

// branchTargetSection resolves the content section a condition points at:
// YesTarget or NoTarget by condition type, the linked next section for
// custom conditions.
func (t *TransitionManager) branchTargetSection(section *domain.ParsedSection) *domain.ParsedSection {
	targetID := section.YesTarget
	if section.ConditionType == domain.ConditionNo {
		targetID = section.NoTarget
	}
	if targetID == "" {
		targetID = section.NextSectionID
	}
	return t.config.Section(targetID)
}

// objectionTransition returns to whatever section was active before the
// objection interrupted, enabling digress-and-return semantics.
func (t *TransitionManager) objectionTransition(section *domain.ParsedSection) *domain.ParsedSection {
	if previousID := t.state.PreviousSection(); previousID != "" {
		if previous := t.config.Section(previousID); previous != nil {
			return previous
		}
	}
	return t.nextInSequence(section)
}

// ShouldActivateCondition evaluates a condition directly and caches the
// result. Used only when a condition node is entered without passing through
// its parent's transition.
func (t *TransitionManager) ShouldActivateCondition(section *domain.ParsedSection, args map[string]any) bool {
	result := t.evaluateCondition(section, args)
	t.state.SetConditionResult(section.ID, result)
	return result
}

// PostConditionSection returns the merge point that follows a condition's
// branches, or nil.
func (t *TransitionManager) PostConditionSection(section *domain.ParsedSection) *domain.ParsedSection {
	if postID := t.config.PostConditionByCondition[section.ID]; postID != "" {
		return t.config.Section(postID)
	}
	return nil
}

func (t *TransitionManager) evaluateCondition(section *domain.ParsedSection, args map[string]any) bool {
	switch section.ConditionType {
	case domain.ConditionYes:
		return t.interpretAs(section, args, yesIndicators, false)
	case domain.ConditionNo:
		return t.interpretAs(section, args, noIndicators, true)
	case domain.ConditionCustom:
		return t.evaluateCustomCondition(section, args)
	}
	return false
}

var yesIndicators = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "interested",
	"true", "want", "would like", "agree", "accept",
}

var noIndicators = []string{
	"no", "nope", "not", "dont", "don't", "never", "nah",
	"false", "decline", "refuse", "reject", "uninterested",
}

// interpretAs scans argument values, then the condition's own collected
// fields, then the parent question's fields, for the given lexicon. Booleans
// are taken directly (inverted for the negative lexicon).
func (t *TransitionManager) interpretAs(section *domain.ParsedSection, args map[string]any, indicators []string, negate bool) bool {
	for _, value := range args {
		switch v := value.(type) {
		case bool:
			if negate {
				return !v
			}
			return v
		case string:
			if matchesAnyIndicator(v, indicators) {
				return true
			}
		}
	}

	if matched, decided := t.fieldsMatch(section.Required, indicators, negate); decided {
		return matched
	}

	if parent := t.config.Section(section.ParentSectionID); parent != nil {
		if matched, decided := t.fieldsMatch(parent.Required, indicators, negate); decided {
			return matched
		}
	}

	return false
}

// fieldsMatch checks state-recorded values for the given fields. The second
// return reports whether a decisive value was found; falsy values (nil,
// false, blank strings) are skipped so lookup can fall through to the parent
// question's fields.
func (t *TransitionManager) fieldsMatch(fields []string, indicators []string, negate bool) (bool, bool) {
	for _, field := range fields {
		switch v := t.state.Field(field).(type) {
		case bool:
			if !v {
				continue
			}
			return !negate, true
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			return matchesAnyIndicator(v, indicators), true
		}
	}
	return false, false
}

func matchesAnyIndicator(value string, indicators []string) bool {
	valueLower := strings.ToLower(strings.TrimSpace(value))
	for _, indicator := range indicators {
		if strings.Contains(valueLower, indicator) {
			return true
		}
	}
	return false
}

// evaluateCustomCondition extracts keywords from the condition's header and
// tests for containment in the arguments or any collected field.
func (t *TransitionManager) evaluateCustomCondition(section *domain.ParsedSection, args map[string]any) bool {
	keywords := conditionKeywords(strings.ToLower(section.SectionName))
	if len(keywords) == 0 {
		return false
	}

	for _, value := range args {
		if s, ok := value.(string); ok && containsAnyKeyword(s, keywords) {
			return true
		}
	}
	for _, value := range t.state.CollectedData() {
		if s, ok := value.(string); ok && containsAnyKeyword(s, keywords) {
			return true
		}
	}
	return false
}

var conditionStopWords = map[string]bool{
	"if": true, "customer": true, "user": true, "says": true,
	"asks": true, "about": true, "the": true, "a": true, "an": true,
}

func conditionKeywords(conditionName string) []string {
	var keywords []string
	for _, word := range strings.Fields(conditionName) {
		if !conditionStopWords[word] && len(word) > 2 {
			keywords = append(keywords, word)
		}
	}
	return keywords
}

func containsAnyKeyword(value string, keywords []string) bool {
	valueLower := strings.ToLower(value)
	for _, kw := range keywords {
		if strings.Contains(valueLower, kw) {
			return true
		}
	}
	return false
}

// nextInSequence follows the precomputed next-section pointer.
func (t *TransitionManager) nextInSequence(section *domain.ParsedSection) *domain.ParsedSection {
	return t.config.Section(section.NextSectionID)
}

// skipConditionalBranch continues past a section whose conditions all failed
// and whose parent has no merge point, by position in the flow order.
func (t *TransitionManager) skipConditionalBranch(section *domain.ParsedSection) *domain.ParsedSection {
	for idx, id := range t.config.FlowOrder {
		if id == section.ID && idx+1 < len(t.config.FlowOrder) {
			return t.config.Section(t.config.FlowOrder[idx+1])
		}
	}
	return nil
}
