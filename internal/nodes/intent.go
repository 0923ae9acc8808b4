package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

// IntentClassificationNode routes a query into one of up to five configured
// intent classes with a language model. The model is asked for compact JSON;
// off-list or unparseable answers fall back to the first configured label.
type IntentClassificationNode struct {
	secrets secrets.Store
	client  *http.Client
	breaker *resilience.CircuitBreaker
	log     logger.Logger
}

func (n *IntentClassificationNode) Schema() engine.Schema {
	parameters := make([]engine.ParameterSpec, 0, 12)
	for i := 1; i <= 5; i++ {
		parameters = append(parameters,
			engine.ParameterSpec{Name: fmt.Sprintf("class_%d_label", i), Type: "string", Description: fmt.Sprintf("Class %d label", i), Required: false, Default: ""},
			engine.ParameterSpec{Name: fmt.Sprintf("class_%d_instruction", i), Type: "string", Description: fmt.Sprintf("Class %d description", i), Required: false, Default: ""},
		)
	}
	parameters = append(parameters,
		engine.ParameterSpec{Name: "service", Type: "string", Description: "Which model service to call", Required: false, Default: "openai", Options: []string{"openai", "groq", "ollama"}},
		engine.ParameterSpec{Name: "model", Type: "string", Description: "Model identifier understood by the service", Required: false, Default: ""},
	)

	return engine.Schema{
		TypeID:      "intentclassification",
		Name:        "IntentClassificationNode",
		Description: "Classifies a query into one of up to five configured intent classes.",
		Category:    "Logic",
		Inputs: []engine.InputSpec{
			{Name: "query", Type: "string", Description: "User query to classify", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "intent", Type: "string", Description: "Predicted intent label"},
			{Name: "confidence", Type: "number", Description: "Confidence score between 0 and 1"},
			{Name: "reason", Type: "string", Description: "Brief rationale for the decision"},
		},
		Parameters: parameters,
	}
}

func (n *IntentClassificationNode) RequiredCredentials(parameters map[string]interface{}) []string {
	switch strings.ToLower(strings.TrimSpace(stringify(parameters["service"]))) {
	case "groq":
		return []string{"GROQ_API_KEY"}
	case "ollama":
		return nil
	default:
		return []string{"OPENAI_API_KEY"}
	}
}

func (n *IntentClassificationNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	query := strings.TrimSpace(stringify(inputs["query"]))

	labels, guide := intentClasses(parameters)

	systemPrompt := "You are an intent classifier. Choose exactly one label from the allowed list. " +
		"Respond ONLY as compact JSON with keys: intent (string, one of allowed labels), " +
		"confidence (float 0..1), reason (string)."
	userPrompt := fmt.Sprintf("Allowed labels: %s\n\nGuidelines:\n%s\n\nQuery:\n%s\n\nReturn JSON only, e.g. {\"intent\":\"food\",\"confidence\":0.92,\"reason\":\"mentions dishes\"}",
		strings.Join(labels, ", "), guide, query)

	service := strings.ToLower(strings.TrimSpace(stringify(parameters["service"])))
	if service == "" {
		service = "openai"
	}

	response, err := chatCompletion(ctx, n.secrets, n.client, n.breaker, chatRequest{
		service:      service,
		model:        stringify(parameters["model"]),
		systemPrompt: systemPrompt,
		userPrompt:   userPrompt,
		temperature:  0,
		maxTokens:    256,
	})
	if err != nil {
		n.log.Warn("intent classification failed", "service", service, "error", err)
		return map[string]interface{}{
			"intent":     "",
			"confidence": 0.0,
			"reason":     err.Error(),
			"success":    false,
			"metadata": map[string]interface{}{
				"error": err.Error(),
			},
		}, nil
	}

	intent, confidence, reason := parseIntentResponse(response, labels)
	return map[string]interface{}{
		"intent":     intent,
		"confidence": confidence,
		"reason":     reason,
	}, nil
}

// intentClasses collects the configured class slots in slot order. With no
// labels configured at all, a single catch-all class is used.
func intentClasses(parameters map[string]interface{}) (labels []string, guide string) {
	var lines []string
	for i := 1; i <= 5; i++ {
		label := strings.TrimSpace(stringify(parameters[fmt.Sprintf("class_%d_label", i)]))
		if label == "" {
			continue
		}
		instruction := strings.TrimSpace(stringify(parameters[fmt.Sprintf("class_%d_instruction", i)]))
		labels = append(labels, label)
		lines = append(lines, "- "+label+": "+instruction)
	}
	if len(labels) == 0 {
		labels = []string{"other"}
		lines = []string{"- other: General / fallback"}
	}
	return labels, strings.Join(lines, "\n")
}

// parseIntentResponse extracts the JSON object from the model's reply. An
// unparseable reply degrades to using a prefix of the raw text as the intent
// before label validation snaps it back onto the allowed list.
func parseIntentResponse(response string, labels []string) (intent string, confidence float64, reason string) {
	text := strings.TrimSpace(response)

	var payload map[string]interface{}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		_ = json.Unmarshal([]byte(text[start:end+1]), &payload)
	}
	if payload == nil {
		clipped := text
		if len(clipped) > 64 {
			clipped = clipped[:64]
		}
		payload = map[string]interface{}{"intent": clipped}
	}

	intent = strings.TrimSpace(stringify(payload["intent"]))
	if c, ok := payload["confidence"].(float64); ok {
		confidence = c
	}
	reason = strings.TrimSpace(stringify(payload["reason"]))

	if !containsLabel(labels, intent) && len(labels) > 0 {
		intent = labels[0]
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return intent, confidence, reason
}

func containsLabel(labels []string, candidate string) bool {
	for _, label := range labels {
		if label == candidate {
			return true
		}
	}
	return false
}
