// Package nodes implements the built-in node catalog against the engine's
// capability contract.
package nodes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

// Deps carries the shared collaborators node instances need. All of them are
// read-only after startup.
type Deps struct {
	Secrets    secrets.Store
	HTTPClient *http.Client
	Breaker    *resilience.CircuitBreaker
	Logger     logger.Logger
}

func DefaultDeps(store secrets.Store, log logger.Logger) Deps {
	return Deps{
		Secrets:    store,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Breaker:    resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("node-outbound")),
		Logger:     log,
	}
}

// RegisterAll populates the registry with the closed built-in node set. The
// registration order is the catalog's stable listing order.
func RegisterAll(reg *engine.Registry, deps Deps) {
	reg.Register("query", func() engine.Node { return &QueryNode{} })
	reg.Register("response", func() engine.Node { return &ResponseNode{} })
	reg.Register("textinput", func() engine.Node { return &TextInputNode{} })
	reg.Register("debug", func() engine.Node { return &DebugNode{} })
	reg.Register("texttransform", func() engine.Node { return &TextTransformNode{} })
	reg.Register("conditional", func() engine.Node { return &ConditionalNode{} })
	reg.Register("merge", func() engine.Node { return &MergeNode{} })
	reg.Register("regexextractor", func() engine.Node { return &RegexExtractorNode{} })
	reg.Register("httprequest", func() engine.Node {
		return &HTTPRequestNode{client: deps.HTTPClient, breaker: deps.Breaker, log: deps.Logger}
	})
	reg.Register("websearch", func() engine.Node {
		return &WebSearchNode{secrets: deps.Secrets, client: deps.HTTPClient, breaker: deps.Breaker, log: deps.Logger}
	})
	reg.Register("languagemodel", func() engine.Node {
		return &LanguageModelNode{secrets: deps.Secrets, client: deps.HTTPClient, breaker: deps.Breaker, log: deps.Logger}
	})
	reg.Register("summary", func() engine.Node {
		return &SummaryNode{secrets: deps.Secrets, client: deps.HTTPClient, breaker: deps.Breaker, log: deps.Logger}
	})
	reg.Register("intentclassification", func() engine.Node {
		return &IntentClassificationNode{secrets: deps.Secrets, client: deps.HTTPClient, breaker: deps.Breaker, log: deps.Logger}
	})
	reg.Register("email", func() engine.Node {
		return &EmailNode{secrets: deps.Secrets, client: deps.HTTPClient, breaker: deps.Breaker}
	})
}

// stringify renders any routed value as text; nil becomes the empty string.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// truthy interprets booleans that may arrive as strings from the UI.
func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		switch val {
		case "true", "True", "TRUE", "1", "yes", "on":
			return true
		}
		return false
	case nil:
		return false
	case float64:
		return val != 0
	case int:
		return val != 0
	}
	return true
}

// errorResult builds the in-band failure shape shared by the catalog: the
// primary socket carries the error text, the explicit outcome flag is false
// and the diagnostic message sits under metadata.
func errorResult(socket, message string) map[string]interface{} {
	return map[string]interface{}{
		socket:    "ERROR: " + message,
		"success": false,
		"metadata": map[string]interface{}{
			"error": message,
		},
	}
}
