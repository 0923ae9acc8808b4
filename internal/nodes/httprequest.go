package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
)

// HTTPRequestNode calls an arbitrary HTTP endpoint and forwards the response
// body downstream. Input sockets are available as {input1}..{input3}
// placeholders inside the URL and body templates.
type HTTPRequestNode struct {
	client  *http.Client
	breaker *resilience.CircuitBreaker
	log     logger.Logger
}

func (n *HTTPRequestNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "httprequest",
		Name:        "HTTPRequestNode",
		Description: "Makes an HTTP request to a configurable endpoint and returns the response.",
		Category:    "Integrations",
		Inputs: []engine.InputSpec{
			{Name: "input1", Type: "string", Description: "First input value, available as {input1}", Required: false},
			{Name: "input2", Type: "string", Description: "Second input value, available as {input2}", Required: false},
			{Name: "input3", Type: "string", Description: "Third input value, available as {input3}", Required: false},
		},
		Outputs: []engine.OutputSpec{
			{Name: "query", Type: "string", Description: "The response body returned by the endpoint"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "url", Type: "string", Description: "The endpoint URL to call", Required: true},
			{Name: "method", Type: "string", Description: "HTTP method to use", Required: false, Default: "GET", Options: []string{"GET", "POST", "PUT", "PATCH", "DELETE"}},
			{Name: "headers", Type: "string", Description: "Request headers as a JSON object", Required: false, Default: "{}"},
			{Name: "body", Type: "string", Description: "Request body template, sent for non-GET methods", Required: false},
			{Name: "timeout", Type: "number", Description: "Request timeout in seconds", Required: false, Default: 30},
		},
	}
}

func (n *HTTPRequestNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return nil
}

func (n *HTTPRequestNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	url := strings.TrimSpace(stringify(parameters["url"]))
	method := strings.ToUpper(strings.TrimSpace(stringify(parameters["method"])))
	if method == "" {
		method = http.MethodGet
	}
	body := stringify(parameters["body"])

	for i := 1; i <= 3; i++ {
		placeholder := fmt.Sprintf("{input%d}", i)
		value := stringify(inputs[fmt.Sprintf("input%d", i)])
		url = strings.ReplaceAll(url, placeholder, value)
		body = strings.ReplaceAll(body, placeholder, value)
	}

	headers := map[string]string{}
	if raw := strings.TrimSpace(stringify(parameters["headers"])); raw != "" && raw != "{}" {
		if err := json.Unmarshal([]byte(raw), &headers); err != nil {
			return errorResult("query", "Invalid headers JSON - "+err.Error()), nil
		}
	}

	timeout := parseTimeout(parameters["timeout"], 30)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reqBody io.Reader
	if method != http.MethodGet && body != "" {
		reqBody = bytes.NewBufferString(body)
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, reqBody)
	if err != nil {
		return errorResult("query", "Invalid request - "+err.Error()), nil
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	if reqBody != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	result, err := n.breaker.ExecuteWithContext(reqCtx, func(callCtx context.Context) (interface{}, error) {
		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		}
		return string(payload), nil
	})
	if err != nil {
		n.log.Warn("http request node call failed", "url", url, "method", method, "error", err)
		return errorResult("query", "HTTP request failed - "+err.Error()), nil
	}

	return map[string]interface{}{
		"query": result.(string),
	}, nil
}

// parseTimeout accepts numbers or numeric strings from the UI and clamps to a
// sane range.
func parseTimeout(v interface{}, fallback float64) time.Duration {
	seconds := fallback
	switch val := v.(type) {
	case float64:
		seconds = val
	case int:
		seconds = float64(val)
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			seconds = parsed
		}
	}
	if seconds <= 0 || seconds > 300 {
		seconds = fallback
	}
	return time.Duration(seconds * float64(time.Second))
}
