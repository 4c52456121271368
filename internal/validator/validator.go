// Package validator checks a parsed flow for consistency before it is served.
package validator

import (
	"fmt"
	"strings"

	"github.com/convoflow/convoflow/pkg/domain"
)

// ValidateConfig checks the flow graph for broken links and unreachable
// steps. It crawls from the entry section following linear transitions and
// condition branches, and reports every problem it finds in one error.
func ValidateConfig(config *domain.FlowConfig) error {
	if config == nil || !config.HasFlow() {
		return fmt.Errorf("no conversation flow: the prompt has no greeting, question or pitch sections")
	}

	var errs []string

	for _, id := range config.FlowOrder {
		if config.Section(id) == nil {
			errs = append(errs, fmt.Sprintf("flow order references missing section '%s'", id))
		}
	}

	for _, id := range config.AllIDs {
		section := config.Section(id)
		if section == nil {
			errs = append(errs, fmt.Sprintf("missing section '%s'", id))
			continue
		}
		errs = append(errs, validateSection(config, section)...)
	}

	if unreachable := unreachableSteps(config); len(unreachable) > 0 {
		errs = append(errs, fmt.Sprintf("unreachable flow steps: %s", strings.Join(unreachable, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

func validateSection(config *domain.FlowConfig, section *domain.ParsedSection) []string {
	var errs []string

	if section.NextSectionID != "" && config.Section(section.NextSectionID) == nil {
		errs = append(errs, fmt.Sprintf("section '%s' links to missing section '%s'", section.ID, section.NextSectionID))
	}

	if section.Type == domain.SectionCondition {
		errs = append(errs, validateBranch(config, section, "yes", section.YesTarget)...)
		errs = append(errs, validateBranch(config, section, "no", section.NoTarget)...)

		if section.ParentSectionID != "" && config.Section(section.ParentSectionID) == nil {
			errs = append(errs, fmt.Sprintf("condition '%s' has missing parent '%s'", section.ID, section.ParentSectionID))
		}
	}

	if section.Type == domain.SectionObjection {
		// "previous" is a dynamic return resolved per conversation.
		if section.ReturnTo != "" && section.ReturnTo != "previous" && config.Section(section.ReturnTo) == nil {
			errs = append(errs, fmt.Sprintf("objection '%s' returns to missing section '%s'", section.ID, section.ReturnTo))
		}
	}

	return errs
}

func validateBranch(config *domain.FlowConfig, section *domain.ParsedSection, branch, target string) []string {
	if target == "" {
		return nil // sink: the branch falls through to the post-condition step
	}
	dest := config.Section(target)
	if dest == nil {
		return []string{fmt.Sprintf("condition '%s' %s-branch targets missing section '%s'", section.ID, branch, target)}
	}
	if !dest.IsBranchTarget() {
		return []string{fmt.Sprintf("condition '%s' %s-branch targets '%s' (%s), which cannot be a branch destination", section.ID, branch, target, dest.Type)}
	}
	return nil
}

// unreachableSteps crawls forward from the entry section and returns every
// flow step that no transition can reach.
func unreachableSteps(config *domain.FlowConfig) []string {
	visited := make(map[string]bool)

	entry := config.FirstStep()
	if entry == nil {
		return nil
	}

	queue := []string{entry.ID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		visited[currentID] = true

		section := config.Section(currentID)
		if section == nil {
			continue
		}

		var targets []string
		if section.NextSectionID != "" {
			targets = append(targets, section.NextSectionID)
		}
		if section.Type == domain.SectionCondition {
			targets = append(targets, section.YesTarget, section.NoTarget)
			if post := config.PostConditionByCondition[section.ID]; post != "" {
				targets = append(targets, post)
			}
		}
		targets = append(targets, config.ConditionsByParent[currentID]...)

		for _, target := range targets {
			if target != "" && !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var unreachable []string
	for _, id := range config.FlowOrder {
		if !visited[id] {
			unreachable = append(unreachable, id)
		}
	}
	return unreachable
}
