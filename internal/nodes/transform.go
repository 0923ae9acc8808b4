package nodes

import (
	"context"
	"strings"

	"github.com/flowgraph-go/internal/engine"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TextTransformNode applies a single text operation to its input.
type TextTransformNode struct{}

func (n *TextTransformNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "texttransform",
		Name:        "TextTransformNode",
		Description: "Transforms text: case changes, trimming, replacement and reversal.",
		Category:    "Text",
		Inputs: []engine.InputSpec{
			{Name: "query", Type: "string", Description: "The input text to transform", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "query", Type: "string", Description: "The transformed text"},
		},
		Parameters: []engine.ParameterSpec{
			{
				Name: "operation", Type: "string", Description: "Text transformation operation to perform",
				Required: true, Default: "lowercase",
				Options: []string{"uppercase", "lowercase", "title_case", "trim", "replace", "remove_spaces", "reverse"},
			},
			{Name: "find_text", Type: "string", Description: "Text to find (for replace operation)", Required: false, Default: ""},
			{Name: "replace_text", Type: "string", Description: "Text to replace with (for replace operation)", Required: false, Default: ""},
		},
	}
}

func (n *TextTransformNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *TextTransformNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	query := stringify(inputs["query"])
	operation := stringify(parameters["operation"])
	if operation == "" {
		operation = "lowercase"
	}

	var result string
	switch operation {
	case "uppercase":
		result = strings.ToUpper(query)
	case "lowercase":
		result = strings.ToLower(query)
	case "title_case":
		result = cases.Title(language.Und).String(query)
	case "trim":
		result = strings.TrimSpace(query)
	case "replace":
		findText := stringify(parameters["find_text"])
		if findText == "" {
			result = query
		} else {
			result = strings.ReplaceAll(query, findText, stringify(parameters["replace_text"]))
		}
	case "remove_spaces":
		result = strings.ReplaceAll(query, " ", "")
	case "reverse":
		result = reverseString(query)
	default:
		return errorResult("query", "Unknown operation - "+operation), nil
	}

	return map[string]interface{}{
		"query": result,
	}, nil
}

func reverseString(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
