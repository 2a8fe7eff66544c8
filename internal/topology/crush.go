package topology

import "github.com/reef-labs/reefd/internal/cluster"

// crushRuleOSDs resolves the set of OSD ids a CRUSH rule selects by walking
// the OSD tree: "take" roots the walk, "choose_firstn" descends into buckets
// of the step's type, "chooseleaf_firstn" short-circuits to every leaf
// beneath those buckets.
func crushRuleOSDs(nodes []cluster.TreeNode, rule cluster.CrushRule) map[int]struct{} {
	byID := make(map[int]cluster.TreeNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var gatherLeafIDs func(node cluster.TreeNode) map[int]struct{}
	gatherLeafIDs = func(node cluster.TreeNode) map[int]struct{} {
		if node.ID >= 0 {
			return map[int]struct{}{node.ID: {}}
		}
		result := make(map[int]struct{})
		for _, childID := range node.Children {
			if childID >= 0 {
				result[childID] = struct{}{}
				continue
			}
			for id := range gatherLeafIDs(byID[childID]) {
				result[id] = struct{}{}
			}
		}
		return result
	}

	var gatherDescendantIDs func(node cluster.TreeNode, typ string) map[int]struct{}
	gatherDescendantIDs = func(node cluster.TreeNode, typ string) map[int]struct{} {
		result := make(map[int]struct{})
		for _, childID := range node.Children {
			child := byID[childID]
			if child.Type == typ {
				result[child.ID] = struct{}{}
			} else if len(child.Children) > 0 {
				for id := range gatherDescendantIDs(child, typ) {
					result[id] = struct{}{}
				}
			}
		}
		return result
	}

	var gatherOSDs func(root cluster.TreeNode, steps []cluster.CrushStep) map[int]struct{}
	gatherOSDs = func(root cluster.TreeNode, steps []cluster.CrushStep) map[int]struct{} {
		if root.ID >= 0 {
			return map[int]struct{}{root.ID: {}}
		}
		if len(steps) == 0 {
			return nil
		}

		osds := make(map[int]struct{})
		step := steps[0]
		switch step.Op {
		case "choose_firstn":
			for id := range gatherDescendantIDs(root, step.Type) {
				for osd := range gatherOSDs(byID[id], steps[1:]) {
					osds[osd] = struct{}{}
				}
			}
		case "chooseleaf_firstn":
			// Anything a chooseleaf selects is part of the final set, so
			// skip ahead to the leaves rather than iterating to the emit.
			for id := range gatherDescendantIDs(root, step.Type) {
				for osd := range gatherLeafIDs(byID[id]) {
					osds[osd] = struct{}{}
				}
			}
		case "emit":
			if root.ID >= 0 {
				osds[root.ID] = struct{}{}
			}
		}
		return osds
	}

	osds := make(map[int]struct{})
	for i, step := range rule.Steps {
		if step.Op == "take" {
			for osd := range gatherOSDs(byID[step.Item], rule.Steps[i+1:]) {
				osds[osd] = struct{}{}
			}
		}
	}
	return osds
}
