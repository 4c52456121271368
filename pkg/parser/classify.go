package parser

import (
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// classifierRule is one entry of the ordered classification table. Rules are
// evaluated top to bottom; the first match wins.
type classifierRule struct {
	Type  domain.SectionType
	Match func(nameLower, content string) bool
}

func anyPattern(patterns ...string) func(string, string) bool {
	return func(nameLower, _ string) bool {
		for _, p := range patterns {
			if strings.Contains(nameLower, p) {
				return true
			}
		}
		return false
	}
}

// defaultRules builds the classification table. Ordering is significant:
// conditions and objections are checked before questions to avoid false
// positives, and question patterns are checked before guideline patterns so
// a header like "Always ask this" classifies as a question, not a guideline.
func defaultRules() []classifierRule {
	questionByName := anyPattern(
		"always ask",
		"ask", "collect", "details", "information",
		"check", "question", "inquiry", "verify",
		"status", "background", "employment", "income",
	)

	return []classifierRule{
		{domain.SectionInstructions, anyPattern("instructions", "guidelines", "response guidelines", "style")},
		{domain.SectionIdentity, anyPattern("identity", "introduction", "who you are", "agent identity")},
		{domain.SectionGreeting, anyPattern("greeting", "welcome", "hello", "opening")},
		{domain.SectionFAQ, anyPattern("faq", "knowledge base", "q&a", "questions")},
		{domain.SectionObjection, anyPattern(
			"if customer says", "if student says", "if caller says", "if user says",
			"if they say", "if he says", "if she says",
			"if customer asks", "if student asks", "if caller asks", "if user asks",
			"objection", "if refuses", "concern",
		)},
		{domain.SectionCondition, anyPattern("if yes", "if no", "if customer", "usecase", "when")},
		{domain.SectionQuestion, func(nameLower, content string) bool {
			return questionByName(nameLower, content) || containsTemplateVariables(content)
		}},
		// "always" is deliberately absent from the guideline patterns so it
		// cannot collide with "always ask" above.
		{domain.SectionGuideline, anyPattern("guideline", "rule", "restriction", "never")},
		{domain.SectionPitch, anyPattern("pitch", "offer", "proposal")},
		{domain.SectionFAQ, func(_, content string) bool { return isQAContent(content) }},
	}
}

// classify identifies a section's type from its header and content. Sections
// that match nothing fall back to question so no section is silently dropped.
func (p *Parser) classify(name, content string) domain.SectionType {
	nameLower := strings.ToLower(name)
	for _, rule := range p.rules {
		if rule.Match(nameLower, content) {
			return rule.Type
		}
	}
	return domain.SectionQuestion
}
