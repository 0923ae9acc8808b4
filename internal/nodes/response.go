package nodes

import (
	"context"
	"strings"

	"github.com/flowgraph-go/internal/engine"
)

// ResponseNode is a terminal kind: it formats the final response shown to
// the user and exposes it as display data.
type ResponseNode struct {
	display map[string]interface{}
}

func (n *ResponseNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "response",
		Name:        "ResponseNode",
		Description: "Final output point; formats and returns the workflow's response.",
		Category:    "I/O",
		Inputs: []engine.InputSpec{
			{Name: "input_data", Type: "string", Description: "Combined input data from upstream connections", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "final_response", Type: "string", Description: "The final processed response that will be displayed"},
		},
		Parameters: []engine.ParameterSpec{},
	}
}

func (n *ResponseNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *ResponseNode) DisplayData() map[string]interface{} {
	return n.display
}

const responseErrorText = "An error occurred in the workflow. Please check the error details."

func (n *ResponseNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	inputData := strings.TrimSpace(stringify(inputs["input_data"]))

	// Upstream failures often arrive as plain error text rather than a
	// structural error; echo them in the in-band failure shape so the
	// classifier flags the run.
	if errMsg := detectTextError(inputData); errMsg != "" {
		n.display = map[string]interface{}{"response_content": responseErrorText}
		return map[string]interface{}{
			"final_response": responseErrorText,
			"success":        false,
			"metadata": map[string]interface{}{
				"error": errMsg,
			},
		}, nil
	}

	finalResponse := inputData
	if finalResponse == "" {
		finalResponse = "No response yet"
	} else if strings.HasPrefix(finalResponse, "Combined inputs:") {
		finalResponse = strings.TrimSpace(strings.TrimPrefix(finalResponse, "Combined inputs:"))
	}

	n.display = map[string]interface{}{"response_content": finalResponse}
	return map[string]interface{}{
		"final_response": finalResponse,
	}, nil
}

// detectTextError applies the legacy text heuristics to a routed string and
// returns the error message, or "" when the text looks fine.
func detectTextError(text string) string {
	if text == "" {
		return ""
	}
	trimmed := strings.TrimSpace(text)
	for _, prefix := range []string{"Error:", "ERROR:", "error:"} {
		if strings.HasPrefix(trimmed, prefix) {
			return text
		}
	}
	lower := strings.ToLower(text)
	phrases := []string{"failed to", "not configured", "not set", "not found", "not available", "invalid"}
	indicators := []string{"error:", "failed", "not configured", "not set", "not found"}
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			for _, indicator := range indicators {
				if strings.Contains(lower, indicator) {
					return text
				}
			}
			break
		}
	}
	return ""
}
