package engine

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/metrics"
	"github.com/flowgraph-go/pkg/secrets"
)

// Engine drives the readiness loop over one workflow graph per Run call.
// It holds only read-only collaborators, so a single Engine is shared by
// concurrent requests.
type Engine struct {
	registry *Registry
	secrets  secrets.Store
	log      logger.Logger

	// iterationSlack is added to the initial pending count to form the
	// defensive iteration cap. Absence of progress, not the cap, is the
	// real termination signal.
	iterationSlack int

	entryTypes    map[string]bool
	terminalTypes map[string]bool
	entryLabel    string
	terminalLabel string
}

type Option func(*Engine)

// WithIterationSlack overrides the defensive loop-cap slack.
func WithIterationSlack(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.iterationSlack = n
		}
	}
}

// WithKinds overrides the designated entry and terminal node kinds. The
// structural error labels follow the configured kinds.
func WithKinds(entry, terminal []string) Option {
	return func(e *Engine) {
		e.entryTypes = lowerSet(entry)
		e.terminalTypes = lowerSet(terminal)
		e.entryLabel = kindLabel(entry)
		e.terminalLabel = kindLabel(terminal)
	}
}

func lowerSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = true
	}
	return set
}

// kindLabel renders a kind set for structural error messages, e.g.
// "response node" or "response or debug node".
func kindLabel(kinds []string) string {
	lowered := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if len(lowered) == 0 {
		return "node"
	}
	return strings.Join(lowered, " or ") + " node"
}

func New(registry *Registry, store secrets.Store, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		registry:       registry,
		secrets:        store,
		log:            log,
		iterationSlack: 10,
		entryTypes:     map[string]bool{"query": true},
		terminalTypes:  map[string]bool{"response": true, "debug": true},
		entryLabel:     "query node",
		terminalLabel:  "response node",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report is the outcome of one run. Node-level failures live in Errors; the
// run as a whole is reported failed whenever Errors is non-empty, even if
// independent branches produced valid terminal output.
type Report struct {
	// ResponseInputs captures the stored results of terminal-kind nodes,
	// including any auxiliary display data.
	ResponseInputs map[string]map[string]interface{} `json:"response_inputs"`
	Executed       []string                          `json:"executed_nodes"`
	Skipped        []string                          `json:"skipped_nodes"`
	Errors         map[string]string                 `json:"errors"`
}

func (r *Report) Failed() bool {
	return len(r.Errors) > 0
}

// Run executes the workflow graph. Structural and credential problems abort
// the whole run and are returned as typed errors; node-local failures are
// isolated into the report.
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()

	g, err := e.buildGraph(req)
	if err != nil {
		return nil, err
	}
	if err := e.preflightCredentials(req); err != nil {
		return nil, err
	}

	report, results, err := e.runLoop(ctx, req, g)
	if err != nil {
		metrics.FlowExecutionsTotal.WithLabelValues("structural_error").Inc()
		return nil, err
	}

	// Second pass: promote in-band failure signals into the error set
	// without overwriting earlier structural errors.
	e.classifyResults(g, results, report)

	status := "success"
	if report.Failed() {
		status = "failed"
	}
	metrics.FlowExecutionsTotal.WithLabelValues(status).Inc()
	metrics.FlowExecutionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	e.log.Info("workflow run finished",
		"status", status,
		"executed", len(report.Executed),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)
	return report, nil
}

// runLoop is the readiness loop: pending → ready (deps ⊆ executed) →
// executed | skipped | error. Ready nodes are processed in discovery order;
// a full pass without progress means a cycle or dangling dependency.
func (e *Engine) runLoop(ctx context.Context, req Request, g *graph) (*Report, map[string]map[string]interface{}, error) {
	report := &Report{
		ResponseInputs: make(map[string]map[string]interface{}),
		Executed:       []string{},
		Skipped:        []string{},
		Errors:         make(map[string]string),
	}

	pending := make(map[string]bool, len(g.order))
	for _, id := range g.order {
		pending[id] = true
	}
	executedSet := make(map[string]bool, len(g.order))
	results := make(map[string]map[string]interface{}, len(g.order))

	maxIterations := len(pending) + e.iterationSlack
	for iterations := 0; len(pending) > 0 && iterations < maxIterations; iterations++ {
		progressed := false

		for _, nodeID := range g.order {
			if !pending[nodeID] {
				continue
			}
			if !subset(g.deps[nodeID], executedSet) {
				continue
			}

			delete(pending, nodeID)
			progressed = true

			spec := req.Nodes[nodeID]
			typeName := spec.TypeName()
			if typeName == "" {
				report.Errors[nodeID] = "Missing 'type' for node"
				continue
			}

			node := e.registry.Create(typeName)
			if node == nil {
				report.Errors[nodeID] = fmt.Sprintf("Unknown node type '%s'", typeName)
				continue
			}

			routed := routeInputs(g.incoming[nodeID], req.Inputs[nodeID], results)

			// Incoming edges but nothing active routed: the node sits on
			// untaken branches, skip it silently.
			if routed.hadEdges && len(routed.values) == 0 && routed.missingUpstream == "" {
				e.log.Debug("skipping node with no active inputs", "node", nodeID, "type", typeName)
				report.Skipped = append(report.Skipped, nodeID)
				continue
			}

			if routed.missingUpstream != "" {
				report.Errors[nodeID] = fmt.Sprintf("Upstream node '%s' has no results", routed.missingUpstream)
				continue
			}

			parameters := spec.Parameters
			if parameters == nil {
				parameters = map[string]interface{}{}
			}

			if err := ValidateBeforeExecution(node, e.secrets, routed.values, parameters); err != nil {
				e.log.Warn("node validation failed", "node", nodeID, "type", typeName, "error", err.Error())
				report.Errors[nodeID] = err.Error()
				continue
			}

			stored, execErr := e.executeNode(ctx, typeName, node, routed.values, parameters)
			if execErr != "" {
				e.log.Error("node execution failed", "node", nodeID, "type", typeName, "error", execErr)
				report.Errors[nodeID] = execErr
				continue
			}

			results[nodeID] = stored
			executedSet[nodeID] = true
			report.Executed = append(report.Executed, nodeID)

			if e.terminalTypes[strings.ToLower(typeName)] {
				report.ResponseInputs[nodeID] = stored
			}
		}

		if !progressed {
			return nil, nil, &StructuralError{
				Message:    "Unresolved dependencies or cyclic graph",
				Unresolved: sortedKeys(pending),
			}
		}
	}

	// The cap is a backstop; hitting it with work left behaves like a stall.
	if len(pending) > 0 {
		return nil, nil, &StructuralError{
			Message:    "Unresolved dependencies or cyclic graph",
			Unresolved: sortedKeys(pending),
		}
	}

	return report, results, nil
}

// executeNode invokes Execute with panic containment. A fault is captured as
// message plus trace; a normal return is normalized into the stored result
// shape, with any display payload merged under the reserved key.
func (e *Engine) executeNode(ctx context.Context, typeName string, node Node, inputs, parameters map[string]interface{}) (stored map[string]interface{}, execErr string) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			execErr = fmt.Sprintf("%v\n%s", p, debug.Stack())
		}
		status := "success"
		if execErr != "" {
			status = "error"
		}
		metrics.RecordNodeExecution(typeName, status, time.Since(start).Seconds())
	}()

	output, err := node.Execute(ctx, inputs, parameters)
	if err != nil {
		return nil, err.Error()
	}

	if m, ok := output.(map[string]interface{}); ok {
		stored = m
	} else {
		stored = map[string]interface{}{DefaultResultKey: output}
	}

	if provider, ok := node.(DisplayDataProvider); ok {
		if display := provider.DisplayData(); len(display) > 0 {
			stored[DisplayKey] = display
		}
	}
	return stored, ""
}

// classifyResults inspects every stored result, including apparent
// successes, for in-band failure signals.
func (e *Engine) classifyResults(g *graph, results map[string]map[string]interface{}, report *Report) {
	for _, nodeID := range g.order {
		result, ok := results[nodeID]
		if !ok {
			continue
		}
		if _, already := report.Errors[nodeID]; already {
			continue
		}
		if IsErrorOutput(result) {
			report.Errors[nodeID] = ExtractErrorMessage(result)
		}
	}
}

func subset(deps map[string]bool, executed map[string]bool) bool {
	for dep := range deps {
		if !executed[dep] {
			return false
		}
	}
	return true
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
