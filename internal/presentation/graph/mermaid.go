package graph

import (
	"fmt"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// Overlay contains dynamic session data to visualize on the graph.
type Overlay struct {
	VisitedSections []string
	CurrentSection  string
}

// GenerateMermaid produces a Mermaid flowchart from a parsed flow.
// It applies semantic styling:
// - Greeting: ((Circle))
// - Question: [/Parallelogram/]
// - Condition: {Diamond}
// - Objection: [[Subroutine]], linked with dashed arrows
// - Default (pitch etc.): [Rectangle]
// It also applies overlay styles (Visited/Current) if provided.
func GenerateMermaid(config *domain.FlowConfig, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range config.AllIDs {
		section := config.Section(id)
		if section == nil {
			continue
		}
		writeNode(&sb, section)
	}

	for _, id := range config.AllIDs {
		section := config.Section(id)
		if section == nil {
			continue
		}
		writeEdges(&sb, config, section)
	}

	if overlay != nil {
		writeOverlay(&sb, overlay)
	}

	return sb.String()
}

func writeNode(sb *strings.Builder, section *domain.ParsedSection) {
	safeID := sanitizeMermaidID(section.ID)
	label := strings.ReplaceAll(section.SectionName, "\"", "'")

	opener, closer := "[", "]"
	switch section.Type {
	case domain.SectionGreeting:
		opener, closer = "((", "))"
	case domain.SectionQuestion:
		opener, closer = "[/", "/]"
	case domain.SectionCondition:
		opener, closer = "{", "}"
	case domain.SectionObjection:
		opener, closer = "[[", "]]"
	}

	fmt.Fprintf(sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
}

func writeEdges(sb *strings.Builder, config *domain.FlowConfig, section *domain.ParsedSection) {
	safeID := sanitizeMermaidID(section.ID)

	switch section.Type {
	case domain.SectionCondition:
		if section.YesTarget != "" {
			fmt.Fprintf(sb, "    %s -- \"yes\" --> %s\n", safeID, sanitizeMermaidID(section.YesTarget))
		}
		if section.NoTarget != "" {
			fmt.Fprintf(sb, "    %s -- \"no\" --> %s\n", safeID, sanitizeMermaidID(section.NoTarget))
		}
		if section.ParentSectionID != "" {
			// Dashed edge from the question that owns the branch.
			fmt.Fprintf(sb, "    %s -.-> %s\n", sanitizeMermaidID(section.ParentSectionID), safeID)
		}
	case domain.SectionObjection:
		// Objections interrupt any step and return to it.
		if section.ReturnTo != "" {
			fmt.Fprintf(sb, "    %s -. \"return\" .-> %s\n", safeID, sanitizeMermaidID(resolveReturn(config, section)))
		}
	default:
		if section.NextSectionID != "" {
			fmt.Fprintf(sb, "    %s --> %s\n", safeID, sanitizeMermaidID(section.NextSectionID))
		}
	}
}

// resolveReturn maps the symbolic "previous" target to the first flow step
// for display purposes; the actual return target is dynamic per session.
func resolveReturn(config *domain.FlowConfig, section *domain.ParsedSection) string {
	if section.ReturnTo != "previous" {
		return section.ReturnTo
	}
	if first := config.FirstStep(); first != nil {
		return first.ID
	}
	return section.ID
}

func writeOverlay(sb *strings.Builder, overlay *Overlay) {
	sb.WriteString("\n    %% Overlay Styles\n")
	// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
	sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	visitedSet := make(map[string]bool)
	for _, id := range overlay.VisitedSections {
		safeID := sanitizeMermaidID(id)
		if !visitedSet[safeID] && safeID != "" {
			visitedSet[safeID] = true
			fmt.Fprintf(sb, "    class %s visited;\n", safeID)
		}
	}

	if overlay.CurrentSection != "" {
		fmt.Fprintf(sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentSection))
	}
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
