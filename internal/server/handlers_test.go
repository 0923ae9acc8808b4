package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/internal/nodes"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/ratelimit"
	"github.com/flowgraph-go/pkg/secrets"
)

func newTestRouter(t *testing.T, store secrets.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	registry := engine.NewRegistry()
	nodes.RegisterAll(registry, nodes.DefaultDeps(store, log))
	eng := engine.New(registry, store, log)

	handlers := NewHandlers(eng, registry, log)
	limiter := ratelimit.NewTokenBucketLimiter(1000, 1000)
	return setupRouter(handlers, nil, limiter, log)
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getJSON(t *testing.T, router *gin.Engine, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return parsed
}

func simpleFlow(query string) map[string]interface{} {
	return map[string]interface{}{
		"nodes": map[string]interface{}{
			"q": map[string]interface{}{"type": "query", "parameters": map[string]interface{}{"query": query}},
			"r": map[string]interface{}{"type": "response"},
		},
		"edges": []map[string]interface{}{
			{
				"from": map[string]interface{}{"node": "q", "output": "query"},
				"to":   map[string]interface{}{"node": "r", "input": "input_data"},
			},
		},
	}
}

func TestExecuteFlowSuccess(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	w := postJSON(t, router, "/api/v1/nodes/execute", simpleFlow("hello there"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	parsed := decode(t, w)
	assert.Equal(t, true, parsed["success"])

	data := parsed["data"].(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{"q", "r"}, data["executed_nodes"])
	assert.Empty(t, data["skipped_nodes"])
	assert.Empty(t, data["errors"])

	responseInputs := data["response_inputs"].(map[string]interface{})
	terminal := responseInputs["r"].(map[string]interface{})
	assert.Equal(t, "hello there", terminal["final_response"])
}

func TestExecuteFlowStructuralErrors(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	t.Run("EmptyNodes", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/nodes/execute", map[string]interface{}{
			"nodes": map[string]interface{}{},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		parsed := decode(t, w)
		assert.Equal(t, "'nodes' is required and cannot be empty", parsed["detail"])
	})

	t.Run("MissingTerminalKind", func(t *testing.T) {
		w := postJSON(t, router, "/api/v1/nodes/execute", map[string]interface{}{
			"nodes": map[string]interface{}{
				"q": map[string]interface{}{"type": "query"},
			},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		detail := decode(t, w)["detail"].(map[string]interface{})
		assert.Equal(t, "Workflow must include at least one query node and one response node", detail["message"])
		assert.Equal(t, true, detail["has_query_node"])
		assert.Equal(t, false, detail["has_response_node"])
		assert.Equal(t, []interface{}{"query"}, detail["received_types"])
	})

	t.Run("Cycle", func(t *testing.T) {
		flow := simpleFlow("x")
		flow["edges"] = []map[string]interface{}{
			{"from": map[string]interface{}{"node": "q"}, "to": map[string]interface{}{"node": "r"}},
			{"from": map[string]interface{}{"node": "r"}, "to": map[string]interface{}{"node": "q"}},
		}
		w := postJSON(t, router, "/api/v1/nodes/execute", flow)
		require.Equal(t, http.StatusBadRequest, w.Code)

		detail := decode(t, w)["detail"].(map[string]interface{})
		assert.Equal(t, "Unresolved dependencies or cyclic graph", detail["message"])
		assert.Equal(t, []interface{}{"q", "r"}, detail["unresolved_nodes"])
	})
}

func TestExecuteFlowCredentialError(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	flow := simpleFlow("x")
	flow["nodes"].(map[string]interface{})["llm"] = map[string]interface{}{
		"type":       "languagemodel",
		"parameters": map[string]interface{}{"service": "openai"},
	}

	w := postJSON(t, router, "/api/v1/nodes/execute", flow)
	require.Equal(t, http.StatusBadRequest, w.Code)

	detail := decode(t, w)["detail"].(map[string]interface{})
	assert.Contains(t, detail["message"], "Settings > Credentials: OPENAI_API_KEY")
	assert.Equal(t, []interface{}{"OPENAI_API_KEY"}, detail["all_missing_credentials"])

	nodeInfo := detail["node_info"].(map[string]interface{})
	llm := nodeInfo["llm"].(map[string]interface{})
	assert.Equal(t, "LanguageModelNode", llm["display_name"])
}

func TestExecuteFlowNodeFailureReport(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	flow := simpleFlow("x")
	flow["nodes"].(map[string]interface{})["bad"] = map[string]interface{}{
		"type": "doesnotexist",
	}

	w := postJSON(t, router, "/api/v1/nodes/execute", flow)
	require.Equal(t, http.StatusBadRequest, w.Code)

	detail := decode(t, w)["detail"].(map[string]interface{})
	assert.Equal(t, false, detail["success"])
	assert.Contains(t, detail["message"], "Workflow execution failed with 1 error(s)")

	errs := detail["errors"].(map[string]interface{})
	assert.Equal(t, "Unknown node type 'doesnotexist'", errs["bad"])
	assert.ElementsMatch(t, []interface{}{"q", "r"}, detail["executed_nodes"])
}

func TestExecuteFlowInvalidPayload(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/nodes/execute", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "Invalid request payload")
}

func TestNodeCatalogEndpoints(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	t.Run("GetAllNodes", func(t *testing.T) {
		w, parsed := getJSON(t, router, "/api/v1/nodes")
		require.Equal(t, http.StatusOK, w.Code)

		data := parsed["data"].(map[string]interface{})
		assert.Equal(t, float64(14), data["total_count"])
		assert.Len(t, data["schemas"], 14)
		assert.Empty(t, data["errors"])
	})

	t.Run("ListNodes", func(t *testing.T) {
		w, parsed := getJSON(t, router, "/api/v1/nodes/list")
		require.Equal(t, http.StatusOK, w.Code)

		data := parsed["data"].(map[string]interface{})
		names := data["nodes"].([]interface{})
		assert.Equal(t, "query", names[0])
		assert.Len(t, names, 14)
	})

	t.Run("GetNodeSchema", func(t *testing.T) {
		w, parsed := getJSON(t, router, "/api/v1/nodes/merge/schema")
		require.Equal(t, http.StatusOK, w.Code)

		data := parsed["data"].(map[string]interface{})
		assert.Equal(t, "MergeNode", data["name"])
	})

	t.Run("UnknownNodeSchema", func(t *testing.T) {
		w, parsed := getJSON(t, router, "/api/v1/nodes/bogus/schema")
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Node 'bogus' not found", parsed["detail"])
	})
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	w, parsed := getJSON(t, router, "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", parsed["status"])

	w, parsed = getJSON(t, router, "/health/ready")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", parsed["status"])
}

func TestWorkflowEndpointsDisabledWithoutDatabase(t *testing.T) {
	router := newTestRouter(t, secrets.Static(nil))

	w, parsed := getJSON(t, router, "/api/v1/workflows")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, parsed["detail"], "persistence is disabled")
}
