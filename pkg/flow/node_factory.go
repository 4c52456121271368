package flow

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/convoflow/convoflow/pkg/domain"
)

// NodeFactory converts parsed sections into executable nodes, memoized by
// section id so every transition resolves to the same node instance.
//
// The section's original content is emitted verbatim as the node's task
// payload — never paraphrased, translated or regenerated. When an assistant
// prompt is supplied it is prepended to every node's instructions so agent
// identity and rules cannot drift across node boundaries.
type NodeFactory struct {
	config          *domain.FlowConfig
	handlers        *HandlerFactory
	assistantPrompt string

	mu       sync.Mutex
	cache    map[string]*domain.Node
	terminal *domain.Node
}

// NewNodeFactory builds a node factory. The handler factory must be bound to
// this node factory (see HandlerFactory.Bind) before any handler runs.
func NewNodeFactory(config *domain.FlowConfig, handlers *HandlerFactory, assistantPrompt string) *NodeFactory {
	return &NodeFactory{
		config:          config,
		handlers:        handlers,
		assistantPrompt: assistantPrompt,
		cache:           make(map[string]*domain.Node),
	}
}

// NodeForSection returns the memoized node for a section, creating it on
// first use.
func (f *NodeFactory) NodeForSection(section *domain.ParsedSection) *domain.Node {
	f.mu.Lock()
	defer f.mu.Unlock()

	if node, ok := f.cache[section.ID]; ok {
		return node
	}

	node := &domain.Node{
		ID:           section.ID,
		SectionType:  section.Type,
		Instructions: f.composeInstructions(section),
		Task:         f.composeTask(section),
		Functions:    []domain.FunctionSchema{f.functionSchema(section)},
	}
	f.cache[section.ID] = node
	return node
}

// NodeByID resolves a section id into its node, or nil.
func (f *NodeFactory) NodeByID(sectionID string) *domain.Node {
	section := f.config.Section(sectionID)
	if section == nil {
		return nil
	}
	return f.NodeForSection(section)
}

// AllNodes creates nodes for every section in flow order.
func (f *NodeFactory) AllNodes() []*domain.Node {
	nodes := make([]*domain.Node, 0, len(f.config.FlowOrder))
	for _, id := range f.config.FlowOrder {
		if section := f.config.Section(id); section != nil {
			nodes = append(nodes, f.NodeForSection(section))
		}
	}
	return nodes
}

// FreeConversationNode is the terminal fallback used when the flow runs out
// of sections: an unstructured conversation that leans on everything
// collected so far.
func (f *NodeFactory) FreeConversationNode() *domain.Node {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.terminal != nil {
		return f.terminal
	}

	instructions := strings.TrimSpace(f.assistantPrompt)
	if instructions != "" {
		instructions += "\n\n"
	}
	instructions += "Objective: continue the conversation naturally using everything " +
		"already collected. Personalize responses with the gathered information, never " +
		"repeat details the user has already provided, confirm anything critical that is " +
		"still missing or unverified, and guide the user toward the next step without " +
		"sounding scripted."

	f.terminal = &domain.Node{
		ID:           "free_conversation",
		SectionType:  domain.SectionQuestion,
		Instructions: instructions,
		Task: "Carry the conversation forward using the gathered information. Rely on " +
			"what is already known, avoid repeating confirmed details, and verify any " +
			"required information that is still missing before progressing.",
	}
	return f.terminal
}

// functionName follows the section type: collect_ for data-collection nodes,
// evaluate_ for conditions, handle_ for objections.
func functionName(section *domain.ParsedSection) string {
	switch section.Type {
	case domain.SectionObjection:
		return "handle_" + section.ID
	case domain.SectionCondition:
		return "evaluate_" + section.ID
	default:
		return "collect_" + section.ID
	}
}

func (f *NodeFactory) functionSchema(section *domain.ParsedSection) domain.FunctionSchema {
	properties := make(map[string]domain.Property, len(section.Required))
	for _, field := range section.Required {
		fieldType := section.FieldTypes[field]
		if fieldType == "" {
			fieldType = domain.FieldString
		}
		description := section.FieldDescriptions[field]
		if description == "" {
			description = "User's response for " + field
		}

		prop := domain.Property{Type: fieldType, Description: description}
		if fieldType == domain.FieldEnum {
			// Enum fields are surfaced as strings with an explicit option
			// list when one can be recovered from the content.
			prop.Type = domain.FieldString
			prop.Enum = ExtractEnumValues(section.Content)
		}
		properties[field] = prop
	}

	description := section.Description
	if description == "" {
		description = "Process " + section.SectionName
	}

	return domain.FunctionSchema{
		Name:        functionName(section),
		Description: description,
		Properties:  properties,
		Required:    append([]string(nil), section.Required...),
		Handler:     f.handlers.HandlerForSection(section),
	}
}

// composeInstructions builds the node's system context: assistant prompt
// verbatim, identity content, then the type-specific step directive.
func (f *NodeFactory) composeInstructions(section *domain.ParsedSection) string {
	var sb strings.Builder

	if f.assistantPrompt != "" {
		sb.WriteString(f.assistantPrompt)
	}
	if f.config.Identity != nil {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(f.config.Identity.Content))
	}
	if sb.Len() > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Repeat("=", 60))
		sb.WriteString("\n\n")
	}
	sb.WriteString(f.stepDirective(section))

	return sb.String()
}

func (f *NodeFactory) stepDirective(section *domain.ParsedSection) string {
	name := functionName(section)
	switch section.Type {
	case domain.SectionGreeting:
		return fmt.Sprintf("**CURRENT STEP:** %s\n\nYou must ALWAYS use the %s function to collect required information. Be warm and professional in your greeting.",
			section.SectionName, name)
	case domain.SectionQuestion:
		return fmt.Sprintf("**CURRENT STEP:** %s\n\nYou must ALWAYS use the %s function to collect: %s. Ask clearly and wait for the user's response before proceeding.",
			section.SectionName, name, strings.Join(section.Required, ", "))
	case domain.SectionPitch:
		return fmt.Sprintf("**CURRENT STEP:** %s\n\nYou must use the %s function after presenting the offer. Be persuasive but not pushy. Highlight value clearly.",
			section.SectionName, name)
	case domain.SectionCondition:
		return fmt.Sprintf("**CURRENT STEP:** %s\n\nYou must use the %s function to determine the next step. Follow the user's response to branch appropriately.",
			section.SectionName, name)
	case domain.SectionObjection:
		return fmt.Sprintf("**CURRENT STEP:** Handling Objection - %s\n\nYou must use the %s function when addressing this objection. Be empathetic, address concerns directly, and guide back to value proposition.",
			section.SectionName, name)
	default:
		return fmt.Sprintf("**CURRENT STEP:** %s\n\nYou must use the %s function to progress the conversation. Be professional and friendly.",
			section.SectionName, name)
	}
}

// composeTask emits the section content verbatim; question nodes prepend the
// first guideline section when one exists.
func (f *NodeFactory) composeTask(section *domain.ParsedSection) string {
	content := strings.TrimSpace(section.Content)
	if section.Type == domain.SectionQuestion && len(f.config.Guidelines) > 0 {
		guidelines := strings.TrimSpace(f.config.Guidelines[0].Content)
		if guidelines != "" {
			content = guidelines + "\n\n" + content
		}
	}
	return content
}

var enumValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Options?:\s*(.+?)[\n.]`),
	regexp.MustCompile(`\(([^)]+?/[^)]+?)\)`),
	regexp.MustCompile(`(?i)\(([^)]+?\bor\b[^)]+?)\)`),
}

var enumSplitRe = regexp.MustCompile(`,|/|\bor\b`)

// ExtractEnumValues recovers an explicit option list from content patterns
// like "Options: A, B, C" or "(A / B / C)".
func ExtractEnumValues(content string) []string {
	for _, pattern := range enumValuePatterns {
		m := pattern.FindStringSubmatch(content)
		if m == nil {
			continue
		}
		parts := enumSplitRe.Split(m[1], -1)
		var values []string
		for _, part := range parts {
			if v := strings.TrimSpace(part); v != "" {
				values = append(values, v)
			}
		}
		if len(values) > 0 {
			return values
		}
	}
	return nil
}
