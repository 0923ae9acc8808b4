package engine

import (
	"fmt"
	"strings"
)

// routedInputs is the outcome of routing one destination node.
type routedInputs struct {
	// values are the built inputs: external seeds overlaid by routed edge
	// contributions, combined per socket.
	values map[string]interface{}
	// hadEdges reports whether the node has any incoming edges.
	hadEdges bool
	// missingUpstream holds the first upstream id with no stored result at
	// all, flagging a structural problem for this destination.
	missingUpstream string
}

// routeInputs gathers the inputs for one destination node from its external
// seed values and the stored results of its upstream nodes. Edges are
// grouped per destination input socket, falling back to the source output
// name, then a generic default. Inactive output sockets (empty values) are
// silently skipped; routing stops at the first upstream without any stored
// result.
func routeInputs(incoming []incomingEdge, external map[string]interface{}, results map[string]map[string]interface{}) routedInputs {
	routed := routedInputs{
		values:   make(map[string]interface{}),
		hadEdges: len(incoming) > 0,
	}
	for name, value := range external {
		routed.values[name] = value
	}

	groups := make(map[string][]interface{})
	var groupOrder []string

	for _, edge := range incoming {
		payload, ok := results[edge.From]
		if !ok {
			routed.missingUpstream = edge.From
			break
		}

		inputKey := edge.Input
		if inputKey == "" {
			inputKey = edge.Output
		}
		if inputKey == "" {
			inputKey = "default"
		}

		var value interface{}
		if edge.Output != "" {
			// Follow only active sockets: the key must exist and be
			// non-empty. The untaken branch of a conditional is inactive.
			candidate, present := payload[edge.Output]
			if !present || isInactive(candidate) {
				continue
			}
			value = candidate
		} else {
			// No socket named: a single-entry result forwards its only
			// value, anything else forwards the whole mapping.
			if len(payload) == 1 {
				for _, only := range payload {
					value = only
				}
			} else {
				value = payload
			}
		}

		if _, seen := groups[inputKey]; !seen {
			groupOrder = append(groupOrder, inputKey)
		}
		groups[inputKey] = append(groups[inputKey], value)
	}

	for _, inputKey := range groupOrder {
		contributions := groups[inputKey]
		if len(contributions) == 1 {
			routed.values[inputKey] = contributions[0]
		} else {
			routed.values[inputKey] = Combine(contributions)
		}
	}

	return routed
}

// isInactive reports whether an output socket value carries nothing:
// nil, empty string, empty list, or empty mapping.
func isInactive(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	}
	return false
}

// Combine merges multiple contributions routed onto the same input socket.
// Empty contributions are dropped; a single survivor is used as-is; uniform
// text joins with a labeled separator; uniform mappings shallow-merge;
// uniform lists concatenate in edge order; anything else is wrapped as a
// structured bundle.
func Combine(values []interface{}) interface{} {
	if len(values) == 0 {
		return nil
	}
	if len(values) == 1 {
		return values[0]
	}

	nonEmpty := make([]interface{}, 0, len(values))
	for _, v := range values {
		if v == nil || v == "" {
			continue
		}
		nonEmpty = append(nonEmpty, v)
	}

	if len(nonEmpty) == 0 {
		return nil
	}
	if len(nonEmpty) == 1 {
		return nonEmpty[0]
	}

	if texts, ok := allStrings(nonEmpty); ok {
		return combineStrings(texts)
	}
	if maps, ok := allMaps(nonEmpty); ok {
		return combineMaps(maps)
	}
	if lists, ok := allLists(nonEmpty); ok {
		return combineLists(lists)
	}

	types := make([]string, len(nonEmpty))
	for i, v := range nonEmpty {
		types[i] = fmt.Sprintf("%T", v)
	}
	return map[string]interface{}{
		"combined_inputs": nonEmpty,
		"input_count":     len(nonEmpty),
		"input_types":     types,
	}
}

func allStrings(values []interface{}) ([]string, bool) {
	out := make([]string, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func allMaps(values []interface{}) ([]map[string]interface{}, bool) {
	out := make([]map[string]interface{}, len(values))
	for i, v := range values {
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, false
		}
		out[i] = m
	}
	return out, true
}

func allLists(values []interface{}) ([][]interface{}, bool) {
	out := make([][]interface{}, len(values))
	for i, v := range values {
		l, ok := v.([]interface{})
		if !ok {
			return nil, false
		}
		out[i] = l
	}
	return out, true
}

func combineStrings(texts []string) interface{} {
	allHaveContent := true
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			allHaveContent = false
			break
		}
	}
	if allHaveContent {
		return "Combined inputs:\n" + strings.Join(texts, "\n\n")
	}
	// Fall back to the single longest piece.
	longest := texts[0]
	for _, t := range texts[1:] {
		if len(t) > len(longest) {
			longest = t
		}
	}
	return longest
}

// combineMaps shallow-merges left to right. Colliding text values are
// newline-joined; colliding non-text values get a suffixed key so nothing is
// silently dropped.
func combineMaps(maps []map[string]interface{}) interface{} {
	combined := make(map[string]interface{})
	for i, m := range maps {
		for key, value := range m {
			existing, collision := combined[key]
			if !collision {
				combined[key] = value
				continue
			}
			existingText, existingIsText := existing.(string)
			valueText, valueIsText := value.(string)
			if existingIsText && valueIsText {
				combined[key] = existingText + "\n" + valueText
			} else {
				combined[fmt.Sprintf("%s_%d", key, i)] = value
			}
		}
	}
	return combined
}

func combineLists(lists [][]interface{}) interface{} {
	var combined []interface{}
	for _, l := range lists {
		combined = append(combined, l...)
	}
	return combined
}
