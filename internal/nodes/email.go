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
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

const resendSendURL = "https://api.resend.com/emails"

// EmailNode sends the routed text as an email through the Resend API.
type EmailNode struct {
	secrets secrets.Store
	client  *http.Client
	breaker *resilience.CircuitBreaker
}

func (n *EmailNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "email",
		Name:        "EmailNode",
		Description: "Sends the incoming text as an email via a transactional mail provider.",
		Category:    "Integrations",
		Inputs: []engine.InputSpec{
			{Name: "query", Type: "string", Description: "The text used as the email body", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "status", Type: "string", Description: "Human-readable delivery status"},
			{Name: "success", Type: "boolean", Description: "Whether the email was accepted by the provider"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "provider", Type: "string", Description: "Mail provider to use", Required: false, Default: "resend", Options: []string{"resend"}},
			{Name: "from_email", Type: "string", Description: "Sender address", Required: true, Default: "onboarding@resend.dev"},
			{Name: "from_name", Type: "string", Description: "Sender display name", Required: false},
			{Name: "to_email", Type: "string", Description: "Recipient address", Required: true},
			{Name: "subject", Type: "string", Description: "Email subject line", Required: true},
			{Name: "content_type", Type: "string", Description: "Body content type", Required: false, Default: "text", Options: []string{"text", "html"}},
		},
	}
}

func (n *EmailNode) RequiredCredentials(parameters map[string]interface{}) []string {
	return []string{"RESEND_API_KEY"}
}

func (n *EmailNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	body := stringify(inputs["query"])
	from := strings.TrimSpace(stringify(parameters["from_email"]))
	if name := strings.TrimSpace(stringify(parameters["from_name"])); name != "" {
		from = fmt.Sprintf("%s <%s>", name, from)
	}

	payload := map[string]interface{}{
		"from":    from,
		"to":      []string{strings.TrimSpace(stringify(parameters["to_email"]))},
		"subject": stringify(parameters["subject"]),
	}
	if stringify(parameters["content_type"]) == "html" {
		payload["html"] = body
	} else {
		payload["text"] = body
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return emailError("Failed to encode email request - " + err.Error()), nil
	}

	apiKey, _ := n.secrets.Get("RESEND_API_KEY")

	result, err := n.breaker.ExecuteWithContext(ctx, func(callCtx context.Context) (interface{}, error) {
		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, resendSendURL, bytes.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+apiKey)

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var parsed struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(respBody, &parsed)
		return parsed.ID, nil
	})
	if err != nil {
		return emailError("Failed to send email - " + err.Error()), nil
	}

	status := "Email sent successfully"
	if id, _ := result.(string); id != "" {
		status = "Email sent successfully (id: " + id + ")"
	}
	return map[string]interface{}{
		"status":  status,
		"success": true,
	}, nil
}

// emailError mirrors errorResult but keeps the node's two-socket shape.
func emailError(message string) map[string]interface{} {
	return map[string]interface{}{
		"status":  "ERROR: " + message,
		"success": false,
		"metadata": map[string]interface{}{
			"error": message,
		},
	}
}
