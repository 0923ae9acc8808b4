package nodes

import (
	"context"
	"regexp"
	"strings"

	"github.com/flowgraph-go/internal/engine"
)

// RegexExtractorNode extracts pattern matches from its input text.
type RegexExtractorNode struct{}

func (n *RegexExtractorNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "regexextractor",
		Name:        "RegexExtractorNode",
		Description: "Extracts regular-expression matches from text, comma-separated.",
		Category:    "Text",
		Inputs: []engine.InputSpec{
			{Name: "query", Type: "string", Description: "The input text to search for patterns", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "query", Type: "string", Description: "Extracted matches (comma-separated if multiple)"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "pattern", Type: "string", Description: "Regular expression pattern to match", Required: true, Default: `\d+`},
			{Name: "case_sensitive", Type: "boolean", Description: "Whether matching is case sensitive", Required: false, Default: true},
		},
	}
}

func (n *RegexExtractorNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *RegexExtractorNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	query := stringify(inputs["query"])
	pattern := stringify(parameters["pattern"])
	if pattern == "" {
		pattern = `\d+`
	}

	caseSensitive := true
	if v, ok := parameters["case_sensitive"]; ok {
		caseSensitive = truthy(v)
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return errorResult("query", "Invalid regex pattern - "+err.Error()), nil
	}

	var extracted []string
	for _, match := range compiled.FindAllStringSubmatch(query, -1) {
		if len(match) > 1 {
			// Capture groups flatten into the result, like findall.
			extracted = append(extracted, match[1:]...)
		} else {
			extracted = append(extracted, match[0])
		}
	}

	return map[string]interface{}{
		"query": strings.Join(extracted, ", "),
	}, nil
}
