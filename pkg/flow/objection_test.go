package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/flow"
)

func TestObjectionManager_SchemasCoverEveryObjection(t *testing.T) {
	config, handlers, _ := newFactories(t)
	manager := flow.NewObjectionManager(config, handlers)

	schemas := manager.Schemas()
	require.Len(t, schemas, len(config.Objections))
	assert.Equal(t, "handle_if_customer_says_too_expensive_5", schemas[0].Name)
	assert.Contains(t, schemas[0].Properties, "details")
	assert.Contains(t, schemas[0].Properties, "objection_type")
	assert.Equal(t, []string{"objection_type"}, schemas[0].Required)
}

func TestObjectionManager_InjectsIntoStepNodes(t *testing.T) {
	config, handlers, factory := newFactories(t)
	manager := flow.NewObjectionManager(config, handlers)

	nodes := factory.AllNodes()
	manager.InjectIntoNodes(nodes)
	manager.InjectIntoNodes(nodes)

	for _, node := range nodes {
		assert.True(t, node.HasFunction("handle_if_customer_says_too_expensive_5"), "node %s", node.ID)
		count := 0
		for _, fn := range node.Functions {
			if fn.Name == "handle_if_customer_says_too_expensive_5" {
				count++
			}
		}
		assert.Equal(t, 1, count, "repeated injection must not stack duplicates on %s", node.ID)
	}
}

func TestObjectionManager_SkipsObjectionNodes(t *testing.T) {
	config, handlers, factory := newFactories(t)
	manager := flow.NewObjectionManager(config, handlers)

	objection := factory.NodeForSection(config.Section("if_customer_says_too_expensive_5"))
	require.Equal(t, domain.SectionObjection, objection.SectionType)

	before := len(objection.Functions)
	manager.InjectIntoNodes([]*domain.Node{objection})
	assert.Len(t, objection.Functions, before)
}

func TestObjectionManager_SchemaCarriesSectionFields(t *testing.T) {
	config, handlers, _ := newFactories(t)

	section := config.Section("if_customer_says_too_expensive_5")
	section.Required = []string{"concern_details", "details"}
	section.FieldDescriptions = map[string]string{"concern_details": "What the cost concern is about"}

	manager := flow.NewObjectionManager(config, handlers)
	schemas := manager.Schemas()
	require.NotEmpty(t, schemas)

	prop, ok := schemas[0].Properties["concern_details"]
	require.True(t, ok)
	assert.Equal(t, domain.FieldString, prop.Type)
	assert.Equal(t, "What the cost concern is about", prop.Description)

	// Reserved property names keep their canonical descriptions.
	assert.Equal(t, "What the user said when raising this objection",
		schemas[0].Properties["details"].Description)
	assert.Contains(t, schemas[0].Properties, "objection_type")
}
