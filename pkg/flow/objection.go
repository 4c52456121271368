package flow

import (
	"github.com/convoflow/convoflow/pkg/domain"
)

// ObjectionManager makes every objection reachable from every flow step.
// Objections can surface at any point in a conversation, so their handler
// functions are injected into all step nodes rather than linked into the
// sequential flow.
type ObjectionManager struct {
	config   *domain.FlowConfig
	handlers *HandlerFactory
}

func NewObjectionManager(config *domain.FlowConfig, handlers *HandlerFactory) *ObjectionManager {
	return &ObjectionManager{config: config, handlers: handlers}
}

// Schemas builds one function schema per objection section.
func (m *ObjectionManager) Schemas() []domain.FunctionSchema {
	schemas := make([]domain.FunctionSchema, 0, len(m.config.Objections))
	for _, section := range m.config.Objections {
		schemas = append(schemas, m.schemaFor(section))
	}
	return schemas
}

func (m *ObjectionManager) schemaFor(section *domain.ParsedSection) domain.FunctionSchema {
	description := section.Description
	if description == "" {
		description = "Handle objection: " + section.SectionName
	}
	objectionType := domain.Property{
		Type:        domain.FieldString,
		Description: "The kind of objection the user raised",
	}
	if len(section.TriggerKeywords) > 0 {
		objectionType.Enum = append([]string(nil), section.TriggerKeywords...)
	}

	properties := map[string]domain.Property{
		"objection_type": objectionType,
		"details": {
			Type:        domain.FieldString,
			Description: "What the user said when raising this objection",
		},
	}
	// The section's own fields ride along so anything volunteered while
	// objecting is captured too.
	for _, field := range section.Required {
		if _, taken := properties[field]; taken {
			continue
		}
		fieldDescription := section.FieldDescriptions[field]
		if fieldDescription == "" {
			fieldDescription = "User's response for " + field
		}
		properties[field] = domain.Property{Type: domain.FieldString, Description: fieldDescription}
	}

	return domain.FunctionSchema{
		Name:        functionName(section),
		Description: description,
		Properties:  properties,
		Required:    []string{"objection_type"},
		Handler:     m.handlers.HandlerForSection(section),
	}
}

// InjectIntoNodes appends objection functions to each node, skipping names
// the node already carries. Safe to call repeatedly; injection is
// idempotent.
func (m *ObjectionManager) InjectIntoNodes(nodes []*domain.Node) {
	schemas := m.Schemas()
	for _, node := range nodes {
		if node.SectionType == domain.SectionObjection {
			continue
		}
		for _, schema := range schemas {
			if node.HasFunction(schema.Name) {
				continue
			}
			node.Functions = append(node.Functions, schema)
		}
	}
}
