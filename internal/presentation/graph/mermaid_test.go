package graph_test

import (
	"strings"
	"testing"

	"github.com/convoflow/convoflow/internal/presentation/graph"
	"github.com/convoflow/convoflow/pkg/domain"
)

func buildConfig(sections ...*domain.ParsedSection) *domain.FlowConfig {
	config := domain.NewFlowConfig()
	for _, s := range sections {
		config.SectionsByID[s.ID] = s
		config.AllIDs = append(config.AllIDs, s.ID)
		if s.IsFlowStep() {
			config.FlowOrder = append(config.FlowOrder, s.ID)
		}
	}
	return config
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		sections []*domain.ParsedSection
		contains []string
	}{
		{
			name: "Greeting Shape",
			sections: []*domain.ParsedSection{
				{ID: "greeting_0", SectionName: "Greeting", Type: domain.SectionGreeting},
			},
			contains: []string{
				`greeting_0(("Greeting"))`,
			},
		},
		{
			name: "Question Shape and Sequence Edge",
			sections: []*domain.ParsedSection{
				{ID: "ask_name_1", SectionName: "Ask Name", Type: domain.SectionQuestion, NextSectionID: "pitch_2"},
				{ID: "pitch_2", SectionName: "Pitch", Type: domain.SectionPitch},
			},
			contains: []string{
				`ask_name_1[/"Ask Name"/]`,
				`pitch_2["Pitch"]`,
				"ask_name_1 --> pitch_2",
			},
		},
		{
			name: "Condition Diamond with Branches",
			sections: []*domain.ParsedSection{
				{ID: "ask_interest_1", SectionName: "Ask Interest", Type: domain.SectionQuestion},
				{
					ID: "if_yes_2", SectionName: "If Yes", Type: domain.SectionCondition,
					ConditionType: domain.ConditionYes, ParentSectionID: "ask_interest_1",
					YesTarget: "pitch_3", NoTarget: "",
				},
				{ID: "pitch_3", SectionName: "Pitch", Type: domain.SectionPitch},
			},
			contains: []string{
				`if_yes_2{"If Yes"}`,
				`if_yes_2 -- "yes" --> pitch_3`,
				"ask_interest_1 -.-> if_yes_2",
			},
		},
		{
			name: "Objection Dashed Return",
			sections: []*domain.ParsedSection{
				{ID: "greeting_0", SectionName: "Greeting", Type: domain.SectionGreeting},
				{ID: "too_expensive_1", SectionName: "Objection: Too Expensive", Type: domain.SectionObjection, ReturnTo: "previous"},
			},
			contains: []string{
				`too_expensive_1[["Objection: Too Expensive"]]`,
				`too_expensive_1 -. "return" .-> greeting_0`,
			},
		},
		{
			name: "ID and Label Sanitization",
			sections: []*domain.ParsedSection{
				{ID: "ask-name", SectionName: `Say "hello"`, Type: domain.SectionPitch},
			},
			contains: []string{
				`ask_name["Say 'hello'"]`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(buildConfig(tt.sections...), nil)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	config := buildConfig(
		&domain.ParsedSection{ID: "greeting_0", SectionName: "Greeting", Type: domain.SectionGreeting},
		&domain.ParsedSection{ID: "ask_name_1", SectionName: "Ask Name", Type: domain.SectionQuestion},
	)

	got := graph.GenerateMermaid(config, &graph.Overlay{
		VisitedSections: []string{"greeting_0", "greeting_0"},
		CurrentSection:  "ask_name_1",
	})

	if strings.Count(got, "class greeting_0 visited;") != 1 {
		t.Errorf("visited nodes must be deduplicated:\n%v", got)
	}
	if !strings.Contains(got, "class ask_name_1 current;") {
		t.Errorf("current node must be styled:\n%v", got)
	}
}
