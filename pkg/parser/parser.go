// Package parser turns a raw prompt document into a typed flow graph.
//
// The input is a light markup convention: sections delimited by [Header],
// "#+ Header" or "=== Header ===" markers, bilingual prompt lines, and
// {{template}} variables. Parsing is heuristic and total: malformed input
// degrades to fallback sections and empty branch targets, never to an error.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// Parser parses raw prompt text or pre-split sections into a FlowConfig.
// A Parser is stateless and safe for concurrent use.
type Parser struct {
	rules []classifierRule
}

// New returns a Parser with the default classification rule table.
func New() *Parser {
	return &Parser{rules: defaultRules()}
}

var (
	// Header markers: [Header], #+ Header, === Header ===.
	headerRe = regexp.MustCompile(`(?m)(?:^|\n)(?:\[([^\]\n]+)\]|#+[ \t]*([^\n]+)|==+[ \t]*([^\n=][^\n]*?)[ \t]*==+)`)

	literalCRLFRe   = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n")
	crlfRe          = regexp.MustCompile(`\r\n?`)
	blankRunRe      = regexp.MustCompile(`\n{3,}`)
	idStripRe       = regexp.MustCompile(`[^\w\s]`)
	idSpaceRe       = regexp.MustCompile(`\s+`)
	templateVarRe   = regexp.MustCompile(`\{\{(\w+)\}\}`)
	qaRe            = regexp.MustCompile(`(?is)Q:\s*.+?\s*A:\s*.+`)
	slugRe          = regexp.MustCompile(`[^a-z0-9]+`)
	slugCollapseRe  = regexp.MustCompile(`_{2,}`)
	listMarkerRe    = regexp.MustCompile(`^[-*\x{2022}]+\s*`)
	enumParenRe     = regexp.MustCompile(`\(.*\bor\b.*\)`)
	inlineLangTagRe = regexp.MustCompile(`(?i)\*\*\w+\*\*\s*[–\-:]\s*`)
	leadingKeyRe    = regexp.MustCompile(`^\w+\s*:\s*`)
	leadingLangRe   = regexp.MustCompile(`(?i)^(en|hi)\s*[–\-:]\s*`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
)

// ParsePrompt parses a raw prompt string into a flow configuration. This is
// the main entry point: it normalizes the text, splits it into sections, and
// delegates to ParseSections.
func (p *Parser) ParsePrompt(prompt string) *domain.FlowConfig {
	normalized := normalize(prompt)
	sections := extractSections(normalized)
	return p.ParseSections(sections)
}

// ParseSections parses pre-split sections into a flow configuration.
func (p *Parser) ParseSections(sections []domain.RawSection) *domain.FlowConfig {
	config := domain.NewFlowConfig()

	var lastPrimaryID string

	for idx, raw := range sections {
		name := raw.Name
		if name == "" {
			// The positional suffix comes from sectionID; a bare base
			// keeps unnamed ids to a single index (section_1, not
			// section_1_1).
			name = "Section"
		}
		content := strings.TrimSpace(raw.Content)
		if content == "" {
			continue
		}

		sectionType := p.classify(name, content)
		section := &domain.ParsedSection{
			ID:          sectionID(name, idx),
			SectionName: name,
			Type:        sectionType,
			Content:     content,
			Raw:         raw,
		}

		switch sectionType {
		case domain.SectionInstructions:
			section.Description = "System instructions and guidelines"
			config.Instructions = section

		case domain.SectionIdentity:
			section.Description = "Agent identity and personality"
			config.Identity = section

		case domain.SectionGreeting:
			p.parseGreeting(section)
			config.Greeting = section
			lastPrimaryID = section.ID
			config.FlowOrder = append(config.FlowOrder, section.ID)

		case domain.SectionQuestion, domain.SectionPitch:
			p.parseQuestion(section)
			if sectionType == domain.SectionPitch {
				config.Pitches = append(config.Pitches, section)
			} else {
				config.Questions = append(config.Questions, section)
			}
			lastPrimaryID = section.ID
			config.FlowOrder = append(config.FlowOrder, section.ID)

		case domain.SectionCondition:
			p.parseCondition(section, lastPrimaryID)
			config.Conditions = append(config.Conditions, section)
			config.FlowOrder = append(config.FlowOrder, section.ID)
			if section.ParentSectionID != "" {
				config.ConditionsByParent[section.ParentSectionID] = append(config.ConditionsByParent[section.ParentSectionID], section.ID)
				config.ConditionParent[section.ID] = section.ParentSectionID
			}

		case domain.SectionObjection:
			parseObjection(section)
			config.Objections = append(config.Objections, section)

		case domain.SectionFAQ:
			section.Description = "Frequently asked questions"
			config.FAQs = append(config.FAQs, section)

		case domain.SectionGuideline:
			section.Description = "Response guidelines and rules"
			config.Guidelines = append(config.Guidelines, section)
		}

		config.SectionsByID[section.ID] = section
		config.AllIDs = append(config.AllIDs, section.ID)
	}

	linkSections(config)

	return config
}

// normalize collapses literal escaped newline sequences into real line
// breaks. Agent configs frequently arrive with `\r\n` as a four-character
// string instead of control characters.
func normalize(text string) string {
	text = literalCRLFRe.Replace(text)
	text = crlfRe.ReplaceAllString(text, "\n")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// extractSections splits text at header markers. When no headers are found
// the whole document becomes one "Main Content" section.
func extractSections(text string) []domain.RawSection {
	matches := headerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return []domain.RawSection{{Name: "Main Content", Content: strings.TrimSpace(text)}}
	}

	var sections []domain.RawSection
	for i, m := range matches {
		header := submatch(text, m, 1)
		if header == "" {
			header = submatch(text, m, 2)
		}
		if header == "" {
			header = submatch(text, m, 3)
		}
		header = strings.TrimSpace(header)

		start := m[1]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[start:end])
		if content == "" {
			continue
		}
		sections = append(sections, domain.RawSection{Name: header, Content: content})
	}
	return sections
}

func submatch(text string, m []int, group int) string {
	lo, hi := m[2*group], m[2*group+1]
	if lo < 0 {
		return ""
	}
	return text[lo:hi]
}

// sectionID derives a stable id from the header and its ordinal position.
func sectionID(name string, index int) string {
	base := idStripRe.ReplaceAllString(strings.ToLower(name), "")
	base = idSpaceRe.ReplaceAllString(strings.TrimSpace(base), "_")
	return fmt.Sprintf("%s_%d", base, index)
}

func (p *Parser) parseGreeting(section *domain.ParsedSection) {
	section.Description = "Initial greeting and conversation start"
	prompts := extractQuestionPrompts(section.Content)

	if vars := templateVariables(section.Content); len(vars) > 0 {
		section.Required = vars
		section.FieldTypes = make(map[string]domain.FieldType, len(vars))
		for _, f := range vars {
			section.FieldTypes[f] = domain.FieldString
		}
		section.FieldDescriptions = mapDescriptions(vars, prompts, section.SectionName)
	} else {
		applyDerivedFields(section, deriveFields(section, prompts, false))
	}

	if len(prompts) > 0 {
		section.Description = prompts[0]
	}
	ensureFallbackField(section)
}

func (p *Parser) parseQuestion(section *domain.ParsedSection) {
	prompts := extractQuestionPrompts(section.Content)

	if vars := templateVariables(section.Content); len(vars) > 0 {
		section.Required = vars
		section.FieldTypes = inferFieldTypes(section.Content, vars)
		section.FieldDescriptions = mapDescriptions(vars, prompts, section.SectionName)
	} else {
		applyDerivedFields(section, deriveFields(section, prompts, false))
	}

	ensureFallbackField(section)

	if len(prompts) > 0 {
		section.Description = prompts[0]
	} else {
		section.Description = section.SectionName
	}
}

func (p *Parser) parseCondition(section *domain.ParsedSection, lastPrimaryID string) {
	nameLower := strings.ToLower(section.SectionName)
	switch {
	case strings.Contains(nameLower, "if yes"):
		section.ConditionType = domain.ConditionYes
	case strings.Contains(nameLower, "if no"):
		section.ConditionType = domain.ConditionNo
	default:
		section.ConditionType = domain.ConditionCustom
	}

	section.ParentSectionID = lastPrimaryID
	section.Description = "Conditional: " + section.SectionName

	prompts := extractQuestionPrompts(section.Content)
	if vars := templateVariables(section.Content); len(vars) > 0 {
		section.Required = vars
		section.FieldTypes = inferFieldTypes(section.Content, vars)
		section.FieldDescriptions = mapDescriptions(vars, prompts, section.SectionName)
	} else {
		// Conditions may legitimately collect nothing.
		applyDerivedFields(section, deriveFields(section, prompts, true))
	}

	if len(prompts) > 0 {
		section.Description = prompts[0]
	}
}

// parseObjection extracts trigger keywords from the header.
// "Customer Objection: High Interest Rate" yields ["high interest rate"].
func parseObjection(section *domain.ParsedSection) {
	if name, trigger, ok := strings.Cut(section.SectionName, ":"); ok {
		_ = name
		trigger = strings.ToLower(strings.TrimSpace(trigger))
		if trigger != "" {
			section.TriggerKeywords = []string{trigger}
		}
	}
	section.Description = "Handle objection: " + section.SectionName
	section.ReturnTo = "previous"
}

func applyDerivedFields(section *domain.ParsedSection, derived []derivedField) {
	if len(derived) == 0 {
		return
	}
	section.Required = make([]string, 0, len(derived))
	section.FieldTypes = make(map[string]domain.FieldType, len(derived))
	section.FieldDescriptions = make(map[string]string, len(derived))
	for _, d := range derived {
		section.Required = append(section.Required, d.Name)
		section.FieldTypes[d.Name] = d.Type
		section.FieldDescriptions[d.Name] = d.Description
	}
}

// ensureFallbackField synthesizes one field from the section name when
// nothing else derived; a data-collection section never ends up field-less.
func ensureFallbackField(section *domain.ParsedSection) {
	if len(section.Required) > 0 {
		return
	}
	field := slugify(section.SectionName)
	if field == "" {
		field = "field"
	}
	section.Required = []string{field}
	section.FieldTypes = map[string]domain.FieldType{field: domain.FieldString}
	section.FieldDescriptions = map[string]string{field: section.SectionName}
}

// templateVariables returns the {{var}} names in order of first appearance,
// deduplicated.
func templateVariables(content string) []string {
	matches := templateVarRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	var vars []string
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return vars
}

func containsTemplateVariables(content string) bool {
	return templateVarRe.MatchString(content)
}

func isQAContent(content string) bool {
	return qaRe.MatchString(content)
}

func slugify(text string) string {
	s := slugRe.ReplaceAllString(strings.ToLower(text), "_")
	s = slugCollapseRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}
