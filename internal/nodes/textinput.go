package nodes

import (
	"context"

	"github.com/flowgraph-go/internal/engine"
)

// TextInputNode emits a static block of text configured on the node. It has
// no input sockets, so it is useful for seeding prompts or fixtures.
type TextInputNode struct{}

func (n *TextInputNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "textinput",
		Name:        "TextInputNode",
		Description: "Provides a fixed text value configured on the node.",
		Category:    "Data Processing",
		Inputs:      []engine.InputSpec{},
		Outputs: []engine.OutputSpec{
			{Name: "text", Type: "string", Description: "The configured text"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "text", Type: "string", Description: "Text to provide to downstream nodes", Required: false, Default: ""},
		},
	}
}

func (n *TextInputNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *TextInputNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{
		"text": stringify(parameters["text"]),
	}, nil
}
