package nodes

import (
	"context"
	"strings"

	"github.com/flowgraph-go/internal/engine"
)

// QueryNode is the designated entry kind: it receives the user's query as a
// parameter and feeds it into the workflow.
type QueryNode struct{}

func (n *QueryNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "query",
		Name:        "QueryNode",
		Description: "Entry point for user queries; passes the configured query into the workflow.",
		Category:    "I/O",
		Inputs:      []engine.InputSpec{},
		Outputs: []engine.OutputSpec{
			{Name: "query", Type: "string", Description: "The processed query ready for the next node"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "query", Type: "string", Description: "The user's input query or message", Required: true, Default: "Hi there!"},
		},
	}
}

func (n *QueryNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *QueryNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	query := stringify(parameters["query"])
	return map[string]interface{}{
		"query": strings.TrimSpace(query),
	}, nil
}
