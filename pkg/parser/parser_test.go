package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convoflow/convoflow/pkg/domain"
	"github.com/convoflow/convoflow/pkg/parser"
)

const salesPrompt = `[Agent Identity]
You are Maya, a friendly telecom advisor.

[Rules]
Never promise discounts that are not listed.

[Greeting]
Hi! This is Maya from Acme Telecom. May I know your name?

[Always Ask City]
en: Which city do you live in?
hi: आप किस शहर में रहते हैं?

[If Yes - Interested]
Share the premium plan details.

[Product Pitch]
Present the premium plan offer.

[Customer Objection: High Price]
Explain the long-term savings.

[FAQ]
Q: Do you have prepaid plans?
A: Yes, starting at 199.
`

func TestParsePrompt_ClassifiesSections(t *testing.T) {
	config := parser.New().ParsePrompt(salesPrompt)

	require.NotNil(t, config.Identity)
	assert.Equal(t, "agent_identity_0", config.Identity.ID)

	require.Len(t, config.Guidelines, 1)
	assert.Equal(t, "rules_1", config.Guidelines[0].ID)

	require.NotNil(t, config.Greeting)
	assert.Equal(t, "greeting_2", config.Greeting.ID)

	require.Len(t, config.Questions, 1)
	assert.Equal(t, "always_ask_city_3", config.Questions[0].ID)

	require.Len(t, config.Conditions, 1)
	require.Len(t, config.Pitches, 1)
	require.Len(t, config.Objections, 1)
	require.Len(t, config.FAQs, 1)
}

func TestParsePrompt_FlowOrderExcludesSupportSections(t *testing.T) {
	config := parser.New().ParsePrompt(salesPrompt)

	assert.Equal(t, []string{
		"greeting_2",
		"always_ask_city_3",
		"if_yes_interested_4",
		"product_pitch_5",
	}, config.FlowOrder)

	// Objections and FAQs stay out of the linear flow but remain addressable.
	assert.NotNil(t, config.Section("customer_objection_high_price_6"))
	assert.NotNil(t, config.Section("faq_7"))
}

func TestParsePrompt_BilingualPromptDerivesOneField(t *testing.T) {
	config := parser.New().ParsePrompt(salesPrompt)

	question := config.Section("always_ask_city_3")
	require.NotNil(t, question)

	assert.Equal(t, []string{"city"}, question.Required)
	assert.Equal(t, domain.FieldString, question.FieldTypes["city"])
	assert.Equal(t, "Which city do you live in?", question.Description)
}

func TestParsePrompt_GreetingDerivesNameField(t *testing.T) {
	config := parser.New().ParsePrompt(salesPrompt)

	require.NotNil(t, config.Greeting)
	assert.Equal(t, []string{"name"}, config.Greeting.Required)
}

func TestParsePrompt_ConditionLinking(t *testing.T) {
	config := parser.New().ParsePrompt(salesPrompt)

	condition := config.Section("if_yes_interested_4")
	require.NotNil(t, condition)

	assert.Equal(t, domain.ConditionYes, condition.ConditionType)
	assert.Equal(t, "always_ask_city_3", condition.ParentSectionID)
	assert.Equal(t, "product_pitch_5", condition.YesTarget)
	assert.Equal(t, []string{"if_yes_interested_4"}, config.ConditionsByParent["always_ask_city_3"])
}

func TestParsePrompt_ObjectionTriggerFromHeader(t *testing.T) {
	config := parser.New().ParsePrompt(salesPrompt)

	objection := config.Section("customer_objection_high_price_6")
	require.NotNil(t, objection)

	assert.Equal(t, []string{"high price"}, objection.TriggerKeywords)
	assert.Equal(t, "previous", objection.ReturnTo)
}

func TestParsePrompt_TemplateVariables(t *testing.T) {
	config := parser.New().ParsePrompt(`[Loan Amount Question]
Ask the customer about the {{loan_amount}} they need and their {{city}}.
Mention {{loan_amount}} once more to confirm.
`)

	question := config.Section("loan_amount_question_0")
	require.NotNil(t, question)
	assert.Equal(t, []string{"loan_amount", "city"}, question.Required, "vars dedupe in order of first appearance")
	assert.Equal(t, domain.FieldNumber, question.FieldTypes["loan_amount"])
}

func TestParsePrompt_LiteralEscapedNewlines(t *testing.T) {
	config := parser.New().ParsePrompt(`[Greeting]\nHi! May I know your name?\n\n[Always Ask City]\nen: Which city do you live in?`)

	require.NotNil(t, config.Greeting)
	require.Len(t, config.Questions, 1)
	assert.Equal(t, "Hi! May I know your name?", config.Greeting.Content)
}

func TestParsePrompt_AlternativeHeaderMarkers(t *testing.T) {
	config := parser.New().ParsePrompt(`## Greeting
Hello! May I know your name?

=== Always Ask City ===
Which city do you live in?
`)

	require.NotNil(t, config.Greeting)
	require.Len(t, config.Questions, 1)
	assert.Equal(t, "always_ask_city_1", config.Questions[0].ID)
}

func TestParsePrompt_HeaderlessDocumentBecomesOneStep(t *testing.T) {
	config := parser.New().ParsePrompt("Please share your feedback about our service.")

	require.True(t, config.HasFlow())
	require.Len(t, config.FlowOrder, 1)

	section := config.Section(config.FlowOrder[0])
	require.NotNil(t, section)
	assert.Equal(t, "main_content_0", section.ID)
	assert.NotEmpty(t, section.Required, "data-collection steps never end up field-less")
}

func TestParsePrompt_EmptyInput(t *testing.T) {
	config := parser.New().ParsePrompt("")
	assert.False(t, config.HasFlow())
}

func TestParseSections(t *testing.T) {
	config := parser.New().ParseSections([]domain.RawSection{
		{Name: "Greeting", Content: "Welcome! May I know your name?"},
		{Name: "", Content: "Ask about their budget. {{budget}}"},
		{Name: "Empty", Content: "   "},
	})

	require.NotNil(t, config.Greeting)
	require.Len(t, config.Questions, 1)
	assert.Equal(t, "section_1", config.Questions[0].ID, "unnamed sections get positional names")
	assert.Len(t, config.AllIDs, 2, "blank sections are dropped")
}

func TestParsePrompt_Deterministic(t *testing.T) {
	first := parser.New().ParsePrompt(salesPrompt)
	second := parser.New().ParsePrompt(salesPrompt)

	require.Equal(t, first.FlowOrder, second.FlowOrder)
	require.Equal(t, first.AllIDs, second.AllIDs)
	assert.Equal(t, first, second)
}
