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

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	groqChatURL   = "https://api.groq.com/openai/v1/chat/completions"
	ollamaChatURL = "http://localhost:11434/v1/chat/completions"
)

// LanguageModelNode sends the routed query to a chat-completion service. The
// required credential depends on the selected service: Groq and OpenAI use
// API keys, a local Ollama needs none.
type LanguageModelNode struct {
	secrets secrets.Store
	client  *http.Client
	breaker *resilience.CircuitBreaker
	log     logger.Logger

	display map[string]interface{}
}

func (n *LanguageModelNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "languagemodel",
		Name:        "LanguageModelNode",
		Description: "Generates a response using a chat-completion language model service.",
		Category:    "AI",
		Inputs: []engine.InputSpec{
			{Name: "query", Type: "string", Description: "The prompt to send to the model", Required: true},
			{Name: "context", Type: "string", Description: "Optional context prepended to the prompt", Required: false},
		},
		Outputs: []engine.OutputSpec{
			{Name: "response", Type: "string", Description: "The model's generated response"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "service", Type: "string", Description: "Which model service to call", Required: true, Default: "openai", Options: []string{"openai", "groq", "ollama"}},
			{Name: "model", Type: "string", Description: "Model identifier understood by the service", Required: false},
			{Name: "system_prompt", Type: "string", Description: "System prompt steering the model", Required: false, Default: "You are a helpful assistant."},
			{Name: "temperature", Type: "number", Description: "Sampling temperature between 0 and 2", Required: false, Default: 0.7},
		},
	}
}

func (n *LanguageModelNode) RequiredCredentials(parameters map[string]interface{}) []string {
	switch strings.ToLower(strings.TrimSpace(stringify(parameters["service"]))) {
	case "groq":
		return []string{"GROQ_API_KEY"}
	case "ollama":
		return nil
	default:
		return []string{"OPENAI_API_KEY"}
	}
}

func (n *LanguageModelNode) DisplayData() map[string]interface{} {
	return n.display
}

func (n *LanguageModelNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	service := strings.ToLower(strings.TrimSpace(stringify(parameters["service"])))
	if service == "" {
		service = "openai"
	}

	_, model, _ := serviceTarget(n.secrets, service, stringify(parameters["model"]))
	n.display = map[string]interface{}{"service": service, "model": model}

	prompt := stringify(inputs["query"])
	if extra := strings.TrimSpace(stringify(inputs["context"])); extra != "" {
		prompt = "Context:\n" + extra + "\n\n" + prompt
	}

	systemPrompt := stringify(parameters["system_prompt"])
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = "You are a helpful assistant."
	}

	result, err := chatCompletion(ctx, n.secrets, n.client, n.breaker, chatRequest{
		service:      service,
		model:        stringify(parameters["model"]),
		systemPrompt: systemPrompt,
		userPrompt:   prompt,
		temperature:  parseTemperature(parameters["temperature"]),
	})
	if err != nil {
		n.log.Warn("language model call failed", "service", service, "model", model, "error", err)
		return errorResult("response", "Language model request failed - "+err.Error()), nil
	}

	return map[string]interface{}{
		"response": result,
	}, nil
}

// chatRequest carries one chat-completion call against an OpenAI-compatible
// service. maxTokens zero means the service default.
type chatRequest struct {
	service      string
	model        string
	systemPrompt string
	userPrompt   string
	temperature  float64
	maxTokens    int
}

// chatCompletion performs one chat-completion round trip through the shared
// circuit breaker and returns the first choice's message content.
func chatCompletion(ctx context.Context, store secrets.Store, client *http.Client, breaker *resilience.CircuitBreaker, req chatRequest) (string, error) {
	endpoint, model, apiKey := serviceTarget(store, req.service, req.model)

	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": req.systemPrompt},
			{"role": "user", "content": req.userPrompt},
		},
		"temperature": req.temperature,
	}
	if req.maxTokens > 0 {
		payload["max_tokens"] = req.maxTokens
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode model request: %w", err)
	}

	result, err := breaker.ExecuteWithContext(ctx, func(callCtx context.Context) (interface{}, error) {
		httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%s returned status %d: %s", req.service, resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return extractCompletion(body)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// serviceTarget resolves endpoint, default model and API key per service.
func serviceTarget(store secrets.Store, service, model string) (endpoint, resolvedModel, apiKey string) {
	switch service {
	case "groq":
		endpoint = groqChatURL
		resolvedModel = "llama-3.1-8b-instant"
		apiKey, _ = valueOrEmpty(store, "GROQ_API_KEY")
	case "ollama":
		endpoint = ollamaChatURL
		resolvedModel = "llama3"
	default:
		endpoint = openAIChatURL
		resolvedModel = "gpt-4o-mini"
		apiKey, _ = valueOrEmpty(store, "OPENAI_API_KEY")
	}
	if strings.TrimSpace(model) != "" {
		resolvedModel = strings.TrimSpace(model)
	}
	return endpoint, resolvedModel, apiKey
}

func valueOrEmpty(store secrets.Store, name string) (string, bool) {
	if store == nil {
		return "", false
	}
	return store.Get(name)
}

func parseTemperature(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		if val >= 0 && val <= 2 {
			return val
		}
	case int:
		if val >= 0 && val <= 2 {
			return float64(val)
		}
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil && parsed >= 0 && parsed <= 2 {
			return parsed
		}
	}
	return 0.7
}

// extractCompletion pulls the first choice's message content out of an
// OpenAI-compatible chat completion response.
func extractCompletion(body []byte) (string, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unexpected response payload: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
