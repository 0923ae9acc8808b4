package engine

import (
	"fmt"
	"sort"
	"strings"
)

// NodeSpec declares one node instance in a request: its type and its
// configured parameters. Name is accepted as a legacy alias for Type.
type NodeSpec struct {
	Type       string                 `json:"type"`
	Name       string                 `json:"name,omitempty"`
	Parameters map[string]interface{} `json:"parameters"`
}

// TypeName returns the declared type, falling back to the legacy name field.
func (s NodeSpec) TypeName() string {
	if s.Type != "" {
		return s.Type
	}
	return s.Name
}

// EdgeSource is the producing end of an edge; Output optionally names the
// source output socket.
type EdgeSource struct {
	Node   string `json:"node"`
	Output string `json:"output,omitempty"`
}

// EdgeTarget is the consuming end of an edge; Input optionally names the
// destination input socket.
type EdgeTarget struct {
	Node  string `json:"node"`
	Input string `json:"input,omitempty"`
}

// Edge is one directed connection in the workflow graph.
type Edge struct {
	From EdgeSource `json:"from"`
	To   EdgeTarget `json:"to"`
}

// Request is the workflow graph submitted for one execution.
type Request struct {
	Nodes map[string]NodeSpec               `json:"nodes"`
	Edges []Edge                            `json:"edges"`
	// Inputs seeds external values per node id and input name.
	Inputs map[string]map[string]interface{} `json:"inputs,omitempty"`
}

// incomingEdge is one incoming connection of a destination node, reduced to
// what routing needs.
type incomingEdge struct {
	From   string
	Output string
	Input  string
}

// graph holds the dependency and adjacency indices for one request.
type graph struct {
	// order is a deterministic iteration order over node ids.
	order    []string
	incoming map[string][]incomingEdge
	deps     map[string]map[string]bool
}

// buildGraph validates the structural invariants and builds the indices.
// Both rejections happen before any index is used.
func (e *Engine) buildGraph(req Request) (*graph, error) {
	if len(req.Nodes) == 0 {
		return nil, &StructuralError{Message: "'nodes' is required and cannot be empty"}
	}

	// Every workflow needs at least one entry-kind and one terminal-kind node.
	receivedTypes := make([]string, 0, len(req.Nodes))
	hasEntry, hasTerminal := false, false
	for _, spec := range req.Nodes {
		t := strings.ToLower(spec.TypeName())
		receivedTypes = append(receivedTypes, t)
		if e.entryTypes[t] {
			hasEntry = true
		}
		if e.terminalTypes[t] {
			hasTerminal = true
		}
	}
	sort.Strings(receivedTypes)
	if !hasEntry || !hasTerminal {
		return nil, &StructuralError{
			Message:       fmt.Sprintf("Workflow must include at least one %s and one %s", e.entryLabel, e.terminalLabel),
			ReceivedTypes: receivedTypes,
			HasEntry:      hasEntry,
			HasTerminal:   hasTerminal,
		}
	}

	g := &graph{
		order:    make([]string, 0, len(req.Nodes)),
		incoming: make(map[string][]incomingEdge, len(req.Nodes)),
		deps:     make(map[string]map[string]bool, len(req.Nodes)),
	}
	for id := range req.Nodes {
		g.order = append(g.order, id)
		g.deps[id] = make(map[string]bool)
	}
	sort.Strings(g.order)

	for _, edge := range req.Edges {
		src, dst := edge.From.Node, edge.To.Node
		if src == "" || dst == "" {
			return nil, &StructuralError{Message: "Each edge must include 'from.node' and 'to.node'"}
		}
		if _, ok := req.Nodes[src]; !ok {
			return nil, &StructuralError{Message: fmt.Sprintf("Edge references unknown nodes: %s -> %s", src, dst)}
		}
		if _, ok := req.Nodes[dst]; !ok {
			return nil, &StructuralError{Message: fmt.Sprintf("Edge references unknown nodes: %s -> %s", src, dst)}
		}
		g.incoming[dst] = append(g.incoming[dst], incomingEdge{
			From:   src,
			Output: edge.From.Output,
			Input:  edge.To.Input,
		})
		g.deps[dst][src] = true
	}

	return g, nil
}
