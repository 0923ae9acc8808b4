package nodes

import (
	"context"
	"strings"

	"github.com/flowgraph-go/internal/engine"
)

// ConditionalNode compares its left input against a right value and emits
// only the taken branch socket, so the untaken branch stays inactive during
// routing.
type ConditionalNode struct {
	display map[string]interface{}
}

func (n *ConditionalNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "conditional",
		Name:        "ConditionalNode",
		Description: "Routes the flow down the true or false branch based on a string comparison.",
		Category:    "Logic",
		Inputs: []engine.InputSpec{
			{Name: "left", Type: "string", Description: "Left-hand value of the comparison", Required: true},
			{Name: "right", Type: "string", Description: "Right-hand value; falls back to the right_value parameter", Required: false},
		},
		Outputs: []engine.OutputSpec{
			{Name: "true", Type: "string", Description: "Carries the left value when the condition holds"},
			{Name: "false", Type: "string", Description: "Carries the left value when the condition fails"},
			{Name: "condition", Type: "boolean", Description: "The evaluated condition"},
		},
		Parameters: []engine.ParameterSpec{
			{
				Name: "operator", Type: "string", Description: "Comparison operator",
				Required: true, Default: "contains",
				Options: []string{"equals", "contains", "starts_with", "ends_with"},
			},
			{Name: "right_value", Type: "string", Description: "Comparison value when the right input is not connected", Required: false, Default: ""},
			{Name: "case_sensitive", Type: "boolean", Description: "Whether the comparison is case sensitive", Required: false, Default: false},
		},
	}
}

func (n *ConditionalNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *ConditionalNode) DisplayData() map[string]interface{} {
	return n.display
}

func (n *ConditionalNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	left := inputs["left"]
	right, hasRight := inputs["right"]
	if !hasRight || right == nil {
		right = parameters["right_value"]
	}

	// Propagate upstream failures instead of comparing error text.
	if msg := inputError(left, "left input"); msg != "" {
		return conditionalError(msg), nil
	}
	if msg := inputError(right, "right input"); msg != "" {
		return conditionalError(msg), nil
	}

	operator := stringify(parameters["operator"])
	if operator == "" {
		operator = "contains"
	}
	caseSensitive := truthy(parameters["case_sensitive"])

	leftStr := stringify(left)
	rightStr := stringify(right)

	leftCmp, rightCmp := leftStr, rightStr
	if !caseSensitive {
		leftCmp = strings.ToLower(leftStr)
		rightCmp = strings.ToLower(rightStr)
	}

	var result bool
	switch operator {
	case "equals":
		result = leftCmp == rightCmp
	case "contains":
		result = strings.Contains(leftCmp, rightCmp)
	case "starts_with":
		result = strings.HasPrefix(leftCmp, rightCmp)
	case "ends_with":
		result = strings.HasSuffix(leftCmp, rightCmp)
	default:
		result = false
	}

	n.display = map[string]interface{}{"operator": operator}

	// Emit only the taken branch to avoid multiple-path routing conflicts.
	output := map[string]interface{}{"condition": result}
	if result {
		output["true"] = leftStr
	} else {
		output["false"] = leftStr
	}
	return output, nil
}

func inputError(v interface{}, side string) string {
	switch val := v.(type) {
	case map[string]interface{}:
		if engine.IsErrorOutput(val) {
			if msg := engine.ExtractErrorMessage(val); msg != "" {
				return msg
			}
			return "Error in " + side
		}
	case string:
		trimmed := strings.TrimSpace(val)
		for _, prefix := range []string{"Error:", "ERROR:", "error:"} {
			if strings.HasPrefix(trimmed, prefix) {
				return val
			}
		}
	}
	return ""
}

func conditionalError(message string) map[string]interface{} {
	return map[string]interface{}{
		"condition": false,
		"true":      "",
		"false":     "",
		"success":   false,
		"metadata": map[string]interface{}{
			"error": message,
		},
	}
}
