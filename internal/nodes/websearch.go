package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

const serperSearchURL = "https://google.serper.dev/search"

// WebSearchNode runs a web search for the routed query through the Serper
// search API and renders the organic results as numbered text.
type WebSearchNode struct {
	secrets secrets.Store
	client  *http.Client
	breaker *resilience.CircuitBreaker
	log     logger.Logger
}

func (n *WebSearchNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "websearch",
		Name:        "WebSearchNode",
		Description: "Searches the web for the given query and returns the top results.",
		Category:    "Integrations",
		Inputs: []engine.InputSpec{
			{Name: "query", Type: "string", Description: "The search query", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "results", Type: "string", Description: "Formatted search results"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "max_results", Type: "number", Description: "Maximum number of results to return", Required: false, Default: 5},
		},
	}
}

func (n *WebSearchNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return []string{"SERPER_API_KEY"}
}

func (n *WebSearchNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	query := strings.TrimSpace(stringify(inputs["query"]))
	maxResults := positiveIntParam(parameters["max_results"], 5)

	apiKey, _ := valueOrEmpty(n.secrets, "SERPER_API_KEY")

	payload, err := json.Marshal(map[string]interface{}{
		"q":   query,
		"num": maxResults,
	})
	if err != nil {
		return errorResult("results", "Failed to encode search request - "+err.Error()), nil
	}

	result, err := n.breaker.ExecuteWithContext(ctx, func(callCtx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, serperSearchURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", apiKey)

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("search API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return body, nil
	})
	if err != nil {
		n.log.Warn("web search failed", "query", query, "error", err)
		return errorResult("results", "Web search failed - "+err.Error()), nil
	}

	formatted, err := formatSearchResults(result.([]byte), maxResults)
	if err != nil {
		return errorResult("results", "Web search failed - "+err.Error()), nil
	}

	return map[string]interface{}{
		"results": formatted,
	}, nil
}

// formatSearchResults renders the organic hit list as numbered entries of
// title, link and snippet.
func formatSearchResults(body []byte, maxResults int) (string, error) {
	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unexpected response payload: %w", err)
	}
	if len(parsed.Organic) == 0 {
		return "No results found.", nil
	}

	var sb strings.Builder
	for i, hit := range parsed.Organic {
		if i >= maxResults {
			break
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s\n   %s", i+1, hit.Title, hit.Link)
		if snippet := strings.TrimSpace(hit.Snippet); snippet != "" {
			sb.WriteString("\n   " + snippet)
		}
	}
	return sb.String(), nil
}
