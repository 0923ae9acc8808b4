package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/flowgraph-go/internal/engine"
)

// DebugNode is a terminal kind that passes its input through unchanged while
// rendering an inspection view as display data.
type DebugNode struct {
	display map[string]interface{}
}

func (n *DebugNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "debug",
		Name:        "DebugNode",
		Description: "Inspects data flowing through the workflow and passes it along unchanged.",
		Category:    "Utilities",
		Inputs: []engine.InputSpec{
			{Name: "input_data", Type: "any", Description: "The data to inspect", Required: false},
		},
		Outputs: []engine.OutputSpec{
			{Name: "output_data", Type: "any", Description: "The input data, passed through unchanged"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "label", Type: "string", Description: "Optional label shown above the inspected data", Required: false, Default: ""},
			{Name: "show_type", Type: "boolean", Description: "Whether to show the value's type", Required: false, Default: true},
		},
	}
}

func (n *DebugNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *DebugNode) DisplayData() map[string]interface{} {
	return n.display
}

func (n *DebugNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	raw := inputs["input_data"]
	label := stringify(parameters["label"])
	showType := true
	if v, ok := parameters["show_type"]; ok {
		showType = truthy(v)
	}

	now := time.Now()
	header := now.Format("[2006-01-02 15:04:05.000]")

	if engine.IsEmptyValue(raw) {
		lines := []string{header}
		if label != "" {
			lines = append(lines, "Label: "+label)
		}
		lines = append(lines, "Type: empty", strings.Repeat("-", 40), "Waiting for data...")
		content := strings.Join(lines, "\n")

		n.display = map[string]interface{}{"debug_content": content}
		// Pass through an empty string so downstream skip logic still sees
		// an output socket.
		return map[string]interface{}{
			"output_data":   "",
			"debug_content": content,
			"debug_info": map[string]interface{}{
				"label":     label,
				"type":      "empty",
				"preview":   "No data",
				"timestamp": now.Format(time.RFC3339Nano),
				"data":      nil,
			},
		}, nil
	}

	typeName, sizeInfo := describeValue(raw)
	preview := previewValue(raw)

	lines := []string{header}
	if label != "" {
		lines = append(lines, "Label: "+label)
	}
	if showType {
		typeLine := "Type: " + typeName
		if sizeInfo != "" {
			typeLine += " (" + sizeInfo + ")"
		}
		lines = append(lines, typeLine)
	}
	lines = append(lines, strings.Repeat("-", 38), preview)
	content := strings.Join(lines, "\n")

	n.display = map[string]interface{}{"debug_content": content}
	return map[string]interface{}{
		"output_data":   raw,
		"debug_content": content,
		"debug_info": map[string]interface{}{
			"label":     label,
			"type":      typeName,
			"preview":   preview,
			"timestamp": now.Format(time.RFC3339Nano),
			"data":      raw,
		},
	}, nil
}

func describeValue(v interface{}) (typeName, sizeInfo string) {
	switch val := v.(type) {
	case string:
		return "string", fmt.Sprintf("length: %d", len(val))
	case []interface{}:
		return "list", fmt.Sprintf("items: %d", len(val))
	case map[string]interface{}:
		return "map", fmt.Sprintf("keys: %d", len(val))
	default:
		return fmt.Sprintf("%T", v), ""
	}
}

func previewValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return truncate(val, 300)
	case []interface{}, map[string]interface{}:
		if data, err := json.MarshalIndent(val, "", "  "); err == nil {
			return truncate(string(data), 500)
		}
		return truncate(fmt.Sprintf("%v", val), 300)
	default:
		return truncate(fmt.Sprintf("%v", val), 300)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + fmt.Sprintf("\n... (truncated, %d total chars)", len(s))
}
