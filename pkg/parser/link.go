package parser

import "github.com/convoflow/convoflow/pkg/domain"

// linkSections wires next-section pointers, condition branch targets and
// merge points.
//
// Branch targets are resolved against the full document order (AllIDs), not
// FlowOrder, because objection sections are excluded from the linear flow yet
// must remain valid branch destinations. The target of a condition is the
// nearest subsequent question/pitch/objection section; on documents with
// several interleaved conditions sharing similar downstream structure this
// proximity rule can pick an unintended target — known limitation, kept
// deliberately.
func linkSections(config *domain.FlowConfig) {
	orderIndex := make(map[string]int, len(config.FlowOrder))
	for idx, id := range config.FlowOrder {
		orderIndex[id] = idx
	}
	allIndex := make(map[string]int, len(config.AllIDs))
	for idx, id := range config.AllIDs {
		allIndex[id] = idx
	}

	// Step 1: sequential links for non-condition flow steps.
	for idx, id := range config.FlowOrder {
		section := config.SectionsByID[id]
		if section == nil || section.Type == domain.SectionCondition {
			continue
		}
		if idx+1 < len(config.FlowOrder) {
			section.NextSectionID = config.FlowOrder[idx+1]
		}
	}

	// Step 2: branch targets for conditions attached to a parent.
	for parentID, conditionIDs := range config.ConditionsByParent {
		for _, cid := range conditionIDs {
			condition := config.SectionsByID[cid]
			if condition == nil {
				continue
			}
			target := branchTarget(config, allIndex, cid)
			switch condition.ConditionType {
			case domain.ConditionYes:
				condition.YesTarget = target
			case domain.ConditionNo:
				condition.NoTarget = target
			}
			condition.NextSectionID = target
		}

		// Step 3: merge point — the flow step after the furthest branch target.
		maxTargetIdx := -1
		for _, cid := range conditionIDs {
			condition := config.SectionsByID[cid]
			if condition == nil {
				continue
			}
			target := condition.YesTarget
			if target == "" {
				target = condition.NoTarget
			}
			if target == "" {
				continue
			}
			if idx, ok := orderIndex[target]; ok && idx > maxTargetIdx {
				maxTargetIdx = idx
			}
		}

		postID := ""
		if maxTargetIdx != -1 && maxTargetIdx+1 < len(config.FlowOrder) {
			postID = config.FlowOrder[maxTargetIdx+1]
		}
		if postID != "" {
			config.PostConditionByParent[parentID] = postID
			for _, cid := range conditionIDs {
				config.PostConditionByCondition[cid] = postID
			}
		}
	}

	// Step 4: standalone conditions resolve their own branch target by
	// scanning forward from their own position.
	for _, condition := range config.Conditions {
		if condition.ParentSectionID != "" {
			continue
		}
		target := branchTarget(config, allIndex, condition.ID)
		if target == "" {
			continue
		}
		switch condition.ConditionType {
		case domain.ConditionYes:
			condition.YesTarget = target
		case domain.ConditionNo:
			condition.NoTarget = target
		}
		condition.NextSectionID = target
	}
}

// branchTarget finds the nearest section after fromID (in full document
// order) that can serve as a branch destination.
func branchTarget(config *domain.FlowConfig, allIndex map[string]int, fromID string) string {
	start, ok := allIndex[fromID]
	if !ok {
		return ""
	}
	for i := start + 1; i < len(config.AllIDs); i++ {
		candidate := config.SectionsByID[config.AllIDs[i]]
		if candidate != nil && candidate.IsBranchTarget() {
			return candidate.ID
		}
	}
	return ""
}
