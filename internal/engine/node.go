package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowgraph-go/pkg/secrets"
)

// InputSpec describes one input socket of a node type.
type InputSpec struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default_value"`
}

// OutputSpec describes one output socket of a node type.
type OutputSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// ParameterSpec describes one configuration parameter of a node type.
type ParameterSpec struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default_value"`
	Options     []string    `json:"options,omitempty"`
}

// Schema is the declarative description of a node type.
type Schema struct {
	TypeID      string          `json:"node_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Inputs      []InputSpec     `json:"inputs"`
	Outputs     []OutputSpec    `json:"outputs"`
	Parameters  []ParameterSpec `json:"parameters"`
}

// Node is the capability contract every node type implements. Instances are
// created fresh per request through the registry and carry no cross-request
// state.
type Node interface {
	// Schema returns the node type's declaration. Pure.
	Schema() Schema

	// RequiredCredentials returns the credential identifiers this node needs.
	// The set may depend on parameters (e.g. which backing service is
	// selected).
	RequiredCredentials(parameters map[string]interface{}) []string

	// Execute runs the node. Mapping returns are stored as-is; any other
	// return is wrapped under the "result" key by the scheduler. Failures are
	// reported through the error return.
	Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error)
}

// DisplayDataProvider is implemented by nodes that accumulate auxiliary
// display data during one execution. The scheduler merges it into the stored
// result under DisplayKey; it is not part of success/failure semantics.
type DisplayDataProvider interface {
	DisplayData() map[string]interface{}
}

// DisplayKey is the reserved result key holding auxiliary display data.
const DisplayKey = "__node_data__"

// DefaultResultKey wraps non-mapping execute returns.
const DefaultResultKey = "result"

// IsEmptyValue reports whether a value counts as absent for validation:
// nil, blank string, or empty collection.
func IsEmptyValue(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []interface{}:
		return len(val) == 0
	case map[string]interface{}:
		return len(val) == 0
	}
	return false
}

// ValidateBeforeExecution runs the fixed pre-execution chain: credentials
// present, then required inputs present and non-empty, then required
// parameters present and non-empty. It short-circuits on the first failure.
func ValidateBeforeExecution(node Node, store secrets.Store, inputs, parameters map[string]interface{}) error {
	if err := validateCredentials(node, store, parameters); err != nil {
		return err
	}
	if err := validateInputs(node.Schema(), inputs); err != nil {
		return err
	}
	return validateParameters(node.Schema(), parameters)
}

func validateCredentials(node Node, store secrets.Store, parameters map[string]interface{}) error {
	missing := MissingCredentials(node, store, parameters)
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("Missing required credential(s): %s. Please set them in Settings > Credentials or environment variables.",
		strings.Join(missing, ", "))
}

// MissingCredentials resolves the node's required credentials against the
// store and returns the ones that are absent, in declaration order.
func MissingCredentials(node Node, store secrets.Store, parameters map[string]interface{}) []string {
	var missing []string
	for _, name := range node.RequiredCredentials(parameters) {
		if _, ok := store.Get(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func validateInputs(schema Schema, inputs map[string]interface{}) error {
	for _, in := range schema.Inputs {
		if !in.Required {
			continue
		}
		value, ok := inputs[in.Name]
		if !ok {
			return fmt.Errorf("Required input '%s' is missing. Please provide a value.", in.Name)
		}
		if IsEmptyValue(value) {
			return fmt.Errorf("Required input '%s' is empty. Please provide a value.", in.Name)
		}
	}
	return nil
}

func validateParameters(schema Schema, parameters map[string]interface{}) error {
	for _, p := range schema.Parameters {
		if !p.Required {
			continue
		}
		value, ok := parameters[p.Name]
		if !ok {
			return fmt.Errorf("Required parameter '%s' is missing. Please provide a value.", p.Name)
		}
		if IsEmptyValue(value) {
			return fmt.Errorf("Required parameter '%s' is missing or empty. Please provide a value.", p.Name)
		}
	}
	return nil
}
