package nodes

import (
	"context"
	"strings"

	"github.com/flowgraph-go/internal/engine"
)

// MergeNode joins two text inputs with an optional separator.
type MergeNode struct{}

func (n *MergeNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "merge",
		Name:        "MergeNode",
		Description: "Combines two inputs into a single text value.",
		Category:    "Text",
		Inputs: []engine.InputSpec{
			{Name: "input1", Type: "string", Description: "First input to merge", Required: false},
			{Name: "input2", Type: "string", Description: "Second input to merge", Required: false},
		},
		Outputs: []engine.OutputSpec{
			{Name: "query", Type: "string", Description: "The merged result"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "separator", Type: "string", Description: "Separator placed between the inputs", Required: false, Default: ""},
		},
	}
}

func (n *MergeNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *MergeNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	input1 := inputs["input1"]
	input2 := inputs["input2"]
	separator := stringify(parameters["separator"])

	if msg := inputError(input1, "input1"); msg != "" {
		return errorResult("query", msg), nil
	}
	if msg := inputError(input2, "input2"); msg != "" {
		return errorResult("query", msg), nil
	}

	first := strings.TrimSpace(stringify(input1))
	second := strings.TrimSpace(stringify(input2))

	var result string
	switch {
	case first != "" && second != "":
		if separator != "" {
			result = first + " " + separator + " " + second
		} else {
			result = first + " " + second
		}
	case first != "":
		result = first
	case second != "":
		result = second
	}

	return map[string]interface{}{
		"query": result,
	}, nil
}
