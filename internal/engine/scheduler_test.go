package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/secrets"
)

// fakeNode is a scriptable node implementation for scheduler tests.
type fakeNode struct {
	schema  Schema
	creds   []string
	execute func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error)
}

func (n *fakeNode) Schema() Schema { return n.schema }

func (n *fakeNode) RequiredCredentials(parameters map[string]interface{}) []string { return n.creds }

func (n *fakeNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	if n.execute == nil {
		return map[string]interface{}{}, nil
	}
	return n.execute(ctx, inputs, parameters)
}

func registerEntry(reg *Registry, calls *int) {
	reg.Register("query", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "query", Name: "QueryNode"},
			execute: func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
				if calls != nil {
					*calls++
				}
				return map[string]interface{}{"query": parameters["value"]}, nil
			},
		}
	})
}

func registerTerminal(reg *Registry, calls *int) {
	reg.Register("response", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "response", Name: "ResponseNode"},
			execute: func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
				if calls != nil {
					*calls++
				}
				return map[string]interface{}{"final_response": inputs["input_data"]}, nil
			},
		}
	})
}

func newTestEngine(reg *Registry, store secrets.Store) *Engine {
	if store == nil {
		store = secrets.Static(nil)
	}
	return New(reg, store, logger.NewNop())
}

func twoNodeRequest(value string) Request {
	return Request{
		Nodes: map[string]NodeSpec{
			"q": {Type: "query", Parameters: map[string]interface{}{"value": value}},
			"r": {Type: "response"},
		},
		Edges: []Edge{
			{From: EdgeSource{Node: "q", Output: "query"}, To: EdgeTarget{Node: "r", Input: "input_data"}},
		},
	}
}

func TestRunSimpleFlow(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	eng := newTestEngine(reg, nil)

	report, err := eng.Run(context.Background(), twoNodeRequest("hello"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"q", "r"}, report.Executed)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.False(t, report.Failed())

	require.Contains(t, report.ResponseInputs, "r")
	assert.Equal(t, "hello", report.ResponseInputs["r"]["final_response"])
}

func TestRunSkipsNodeWithNoActiveInputs(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	terminalCalls := 0
	registerTerminal(reg, &terminalCalls)
	eng := newTestEngine(reg, nil)

	// The entry's only output socket is an empty string, so the terminal has
	// an incoming edge but zero active inputs.
	report, err := eng.Run(context.Background(), twoNodeRequest(""))
	require.NoError(t, err)

	assert.Equal(t, []string{"q"}, report.Executed)
	assert.Equal(t, []string{"r"}, report.Skipped)
	assert.Empty(t, report.Errors)
	assert.Zero(t, terminalCalls)
}

func TestRunReportsCycle(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	registerEntry(reg, &calls)
	registerTerminal(reg, &calls)
	eng := newTestEngine(reg, nil)

	req := Request{
		Nodes: map[string]NodeSpec{
			"a": {Type: "query"},
			"b": {Type: "response"},
		},
		Edges: []Edge{
			{From: EdgeSource{Node: "a"}, To: EdgeTarget{Node: "b"}},
			{From: EdgeSource{Node: "b"}, To: EdgeTarget{Node: "a"}},
		},
	}

	_, err := eng.Run(context.Background(), req)
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "Unresolved dependencies or cyclic graph", structural.Message)
	assert.Equal(t, []string{"a", "b"}, structural.Unresolved)
	assert.Zero(t, calls, "no node in the cycle may execute")
}

func TestRunRejectsEmptyNodes(t *testing.T) {
	eng := newTestEngine(NewRegistry(), nil)

	_, err := eng.Run(context.Background(), Request{})
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "'nodes' is required and cannot be empty", structural.Message)
}

func TestRunRequiresEntryAndTerminalKinds(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	eng := newTestEngine(reg, nil)

	req := Request{
		Nodes: map[string]NodeSpec{
			"r": {Type: "response"},
		},
	}

	_, err := eng.Run(context.Background(), req)
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "Workflow must include at least one query node and one response node", structural.Message)
	assert.False(t, structural.HasEntry)
	assert.True(t, structural.HasTerminal)
	assert.Equal(t, []string{"response"}, structural.ReceivedTypes)
}

func TestRunKindLabelsFollowConfiguredKinds(t *testing.T) {
	reg := NewRegistry()
	reg.Register("start", func() Node {
		return &fakeNode{schema: Schema{TypeID: "start", Name: "Start"}}
	})
	reg.Register("sink", func() Node {
		return &fakeNode{schema: Schema{TypeID: "sink", Name: "Sink"}}
	})
	eng := New(reg, secrets.Static(nil), logger.NewNop(),
		WithKinds([]string{"start"}, []string{"sink", "debug"}))

	req := Request{
		Nodes: map[string]NodeSpec{
			"s": {Type: "start"},
		},
	}

	_, err := eng.Run(context.Background(), req)
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "Workflow must include at least one start node and one sink or debug node", structural.Message)
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "response node", kindLabel([]string{"response"}))
	assert.Equal(t, "response or debug node", kindLabel([]string{"Response", "debug"}))
	assert.Equal(t, "node", kindLabel(nil))
}

func TestRunRejectsDanglingEdge(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("x")
	req.Edges = append(req.Edges, Edge{
		From: EdgeSource{Node: "q"}, To: EdgeTarget{Node: "ghost"},
	})

	_, err := eng.Run(context.Background(), req)
	var structural *StructuralError
	require.ErrorAs(t, err, &structural)
	assert.Equal(t, "Edge references unknown nodes: q -> ghost", structural.Message)
}

func TestRunCredentialPreflightAbortsEverything(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	registerEntry(reg, &calls)
	registerTerminal(reg, &calls)
	reg.Register("needskey", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "needskey", Name: "NeedsKeyNode"},
			creds:  []string{"API_KEY"},
			execute: func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
				calls++
				return map[string]interface{}{}, nil
			},
		}
	})
	eng := newTestEngine(reg, secrets.Static(nil))

	req := twoNodeRequest("hello")
	req.Nodes["c"] = NodeSpec{Type: "needskey"}

	_, err := eng.Run(context.Background(), req)
	var credErr *CredentialError
	require.ErrorAs(t, err, &credErr)

	assert.Equal(t, map[string][]string{"c": {"API_KEY"}}, credErr.MissingByNode)
	assert.Equal(t, []string{"API_KEY"}, credErr.AllMissing)
	assert.Contains(t, credErr.Message, "Settings > Credentials: API_KEY")
	require.Contains(t, credErr.NodeInfo, "c")
	assert.Equal(t, "NeedsKeyNode", credErr.NodeInfo["c"].DisplayName)
	assert.Contains(t, credErr.PerNodeMessages[0], "Node 'c' (NeedsKeyNode): Missing API_KEY")
	assert.Zero(t, calls, "nothing may execute when pre-flight fails")
}

func TestRunCredentialPreflightPassesWhenStoreHasKey(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	reg.Register("needskey", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "needskey", Name: "NeedsKeyNode"},
			creds:  []string{"API_KEY"},
		}
	})
	eng := newTestEngine(reg, secrets.Static(map[string]string{"API_KEY": "shhh"}))

	req := twoNodeRequest("hello")
	req.Nodes["c"] = NodeSpec{Type: "needskey"}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, report.Failed())
}

func TestRunRecordsUnknownNodeType(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("hello")
	req.Nodes["z"] = NodeSpec{Type: "bogus"}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, report.Failed())
	assert.Equal(t, "Unknown node type 'bogus'", report.Errors["z"])
	assert.ElementsMatch(t, []string{"q", "r"}, report.Executed)
}

func TestRunRecordsMissingType(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("hello")
	req.Nodes["z"] = NodeSpec{}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Missing 'type' for node", report.Errors["z"])
}

func TestRunIsolatesPanickingNode(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	reg.Register("panics", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "panics"},
			execute: func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
				panic("boom")
			},
		}
	})
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("hello")
	req.Nodes["p"] = NodeSpec{Type: "panics"}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, report.Errors["p"], "boom")
	assert.ElementsMatch(t, []string{"q", "r"}, report.Executed,
		"sibling branches keep running when one node faults")
	require.Contains(t, report.ResponseInputs, "r")
	assert.Equal(t, "hello", report.ResponseInputs["r"]["final_response"])
}

func TestRunWrapsNonMappingOutput(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	reg.Register("debug", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "debug"},
			execute: func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
				return "plain text", nil
			},
		}
	})
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("hello")
	req.Nodes["d"] = NodeSpec{Type: "debug"}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)
	require.Contains(t, report.ResponseInputs, "d")
	assert.Equal(t, "plain text", report.ResponseInputs["d"][DefaultResultKey])
}

func TestRunClassifiesInBandFailures(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	reg.Register("flaky", func() Node {
		return &fakeNode{
			schema: Schema{TypeID: "flaky"},
			execute: func(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
				return map[string]interface{}{
					"query":   "ERROR: upstream exploded",
					"success": false,
					"metadata": map[string]interface{}{
						"error": "upstream exploded",
					},
				}, nil
			},
		}
	})
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("hello")
	req.Nodes["f"] = NodeSpec{Type: "flaky"}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, report.Failed())
	assert.Equal(t, "upstream exploded", report.Errors["f"])
	assert.Contains(t, report.Executed, "f", "in-band failures still count as executed")
}

func TestRunMergesDisplayData(t *testing.T) {
	reg := NewRegistry()
	registerEntry(reg, nil)
	registerTerminal(reg, nil)
	reg.Register("debug", func() Node {
		return &displayFake{}
	})
	eng := newTestEngine(reg, nil)

	req := twoNodeRequest("hello")
	req.Nodes["d"] = NodeSpec{Type: "debug"}

	report, err := eng.Run(context.Background(), req)
	require.NoError(t, err)

	require.Contains(t, report.ResponseInputs, "d")
	display, ok := report.ResponseInputs["d"][DisplayKey].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "shown", display["content"])
}

type displayFake struct{}

func (n *displayFake) Schema() Schema { return Schema{TypeID: "debug"} }

func (n *displayFake) RequiredCredentials(parameters map[string]interface{}) []string { return nil }

func (n *displayFake) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	return map[string]interface{}{"output_data": "x"}, nil
}

func (n *displayFake) DisplayData() map[string]interface{} {
	return map[string]interface{}{"content": "shown"}
}
