package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// derivedField is one field inferred from a section's prompt text.
type derivedField struct {
	Name        string
	Type        domain.FieldType
	Description string
}

var englishLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\*\*en\*\*\s*[–\-:]\s*(.+)$`),
	regexp.MustCompile(`(?i)^"en"\s*:\s*"(.+)"`),
	regexp.MustCompile(`(?i)^en\s*:\s*\\?"?(.+?)\\?"?$`),
	regexp.MustCompile(`(?i)^\[?en\]?\s*[:\-]\s*(.+)$`),
}

// extractQuestionPrompts pulls the English-language prompt lines out of
// mixed-language content. Lines that are purely Devanagari are skipped so the
// Hindi variant of a bilingual prompt does not produce a duplicate field.
func extractQuestionPrompts(content string) []string {
	var prompts []string

	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		line = listMarkerRe.ReplaceAllString(line, "")

		english := extractEnglishText(line)
		if english == "" {
			if containsDevanagari(line) {
				continue
			}
			english = line
		}

		english = strings.TrimSpace(english)
		if strings.HasPrefix(strings.ToLower(english), "options") {
			// Option metadata feeds enum extraction, not field derivation.
			continue
		}
		english = strings.TrimSpace(strings.Trim(english, `"`))
		if english == "" {
			continue
		}

		cleaned := normalizePromptText(english)
		if cleaned == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(cleaned), "option") {
			continue
		}
		prompts = append(prompts, cleaned)
	}

	return prompts
}

// extractEnglishText matches the supported bilingual line formats:
// `**en** – text`, `"en": "text"`, `en: text`, `[en]: text`.
func extractEnglishText(line string) string {
	for _, re := range englishLinePatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1]
		}
	}
	return ""
}

func containsDevanagari(line string) bool {
	for _, r := range line {
		if r >= 0x0900 && r <= 0x097F {
			return true
		}
	}
	return false
}

// normalizePromptText strips filler tokens, language tags and markdown bold
// markers, and collapses whitespace.
func normalizePromptText(text string) string {
	cleaned := strings.ReplaceAll(text, "<wait for response>", "")
	cleaned = strings.ReplaceAll(cleaned, "<wait>", "")
	cleaned = inlineLangTagRe.ReplaceAllString(cleaned, "")
	cleaned = leadingKeyRe.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "**", "")
	cleaned = leadingLangRe.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "“", `"`)
	cleaned = strings.ReplaceAll(cleaned, "”", `"`)
	cleaned = spaceRunRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// deriveFields builds field metadata from extracted prompts. With allowEmpty
// false and no prompts, the section name itself becomes the single prompt.
// Name collisions within a section are resolved by numeric suffixing.
func deriveFields(section *domain.ParsedSection, prompts []string, allowEmpty bool) []derivedField {
	questions := prompts
	if len(questions) == 0 && !allowEmpty {
		questions = []string{section.SectionName}
	}

	var derived []derivedField
	taken := make(map[string]bool, len(questions))

	for idx, prompt := range questions {
		name := deriveFieldName(prompt, section, idx)
		base := name
		for suffix := 2; taken[name]; suffix++ {
			name = fmt.Sprintf("%s_%d", base, suffix)
		}
		taken[name] = true

		derived = append(derived, derivedField{
			Name:        name,
			Type:        inferFieldTypeForPrompt(prompt),
			Description: prompt,
		})
	}
	return derived
}

// fieldNameHeuristics maps prompt phrases to canonical field names. Evaluated
// in order; first phrase contained in the prompt wins.
var fieldNameHeuristics = []struct {
	Phrase string
	Field  string
}{
	{"your name", "name"},
	{"name?", "name"},
	{"educational background", "educational_background"},
	{"background", "background"},
	{"preparation level", "preparation_level"},
	{"attempt", "exam_attempt_status"},
	{"attempted", "exam_attempt_status"},
	{"year are you planning", "target_exam_year"},
	{"which year", "target_exam_year"},
	{"course", "course_interest"},
	{"program", "program_preference"},
	{"online program", "program_mode_preference"},
	{"offline program", "program_mode_preference"},
	{"whatsapp", "whatsapp_number"},
	{"contact number", "contact_number"},
	{"phone number", "contact_number"},
	{"city", "city"},
	{"pincode", "pincode"},
	{"employment status", "employment_status"},
	{"work experience", "work_experience"},
	{"why", "objection_reason"},
	{"interested", "interest_level"},
	{"interest", "interest_level"},
}

func deriveFieldName(prompt string, section *domain.ParsedSection, index int) string {
	promptLower := strings.ToLower(prompt)

	for _, h := range fieldNameHeuristics {
		if strings.Contains(promptLower, h.Phrase) {
			return h.Field
		}
	}

	candidate := slugify(promptLower)
	if candidate == "" || len(candidate) < 3 {
		candidate = fmt.Sprintf("%s_%d", section.ID, index+1)
	}
	if len(candidate) > 40 {
		candidate = strings.TrimRight(candidate[:40], "_")
	}
	return candidate
}

var (
	booleanPromptKeywords = []string{"yes", "no", "interested", "would you like", "do you want", "are you"}
	numericPromptKeywords = []string{"how many", "year", "age", "pincode", "amount", "rupee", "fee", "fees"}
)

// inferFieldTypeForPrompt types a single derived field from prompt keywords.
func inferFieldTypeForPrompt(prompt string) domain.FieldType {
	promptLower := strings.ToLower(prompt)
	if containsWord(promptLower, booleanPromptKeywords) {
		return domain.FieldBoolean
	}
	if containsWord(promptLower, numericPromptKeywords) {
		return domain.FieldNumber
	}
	return domain.FieldString
}

func containsWord(text string, keywords []string) bool {
	for _, kw := range keywords {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// inferFieldTypes types template-variable fields from the field name first,
// then from surrounding content keywords.
func inferFieldTypes(content string, fields []string) map[string]domain.FieldType {
	types := make(map[string]domain.FieldType, len(fields))
	contentLower := strings.ToLower(content)

	for _, field := range fields {
		fieldLower := strings.ToLower(field)

		switch {
		case containsAny(fieldLower, "yes", "no", "interested", "boolean"):
			types[field] = domain.FieldBoolean
		case containsAny(fieldLower, "count", "number", "amount", "year", "pincode", "age"):
			types[field] = domain.FieldNumber
		case enumParenRe.MatchString(contentLower):
			types[field] = domain.FieldEnum
		case containsAny(contentLower, "yes", "no", "interested", "agree"):
			types[field] = domain.FieldBoolean
		case containsAny(contentLower, "number", "amount", "rupees", "lakh", "income"):
			types[field] = domain.FieldNumber
		default:
			types[field] = domain.FieldString
		}
	}
	return types
}

func containsAny(text string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// mapDescriptions pairs prompts with fields positionally, falling back to the
// default for unmatched fields.
func mapDescriptions(fields, prompts []string, defaultDescription string) map[string]string {
	descriptions := make(map[string]string, len(fields))
	for idx, field := range fields {
		if idx < len(prompts) {
			descriptions[field] = prompts[idx]
		} else {
			descriptions[field] = defaultDescription
		}
	}
	return descriptions
}
