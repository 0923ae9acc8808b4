package nodes

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/flowgraph-go/internal/engine"
	"github.com/flowgraph-go/pkg/logger"
	"github.com/flowgraph-go/pkg/resilience"
	"github.com/flowgraph-go/pkg/secrets"
)

// SummaryNode condenses long content with a language model. Content is split
// into sentence-aligned chunks, each chunk is summarized on its own, and the
// chunk summaries are combined level by level until a single summary remains.
type SummaryNode struct {
	secrets secrets.Store
	client  *http.Client
	breaker *resilience.CircuitBreaker
	log     logger.Logger
}

func (n *SummaryNode) Schema() engine.Schema {
	return engine.Schema{
		TypeID:      "summary",
		Name:        "SummaryNode",
		Description: "Summarizes long content using chunked, hierarchical language model calls.",
		Category:    "AI",
		Inputs: []engine.InputSpec{
			{Name: "content", Type: "string", Description: "The content to summarize", Required: true},
		},
		Outputs: []engine.OutputSpec{
			{Name: "summary", Type: "string", Description: "The final summary"},
			{Name: "metadata", Type: "dict", Description: "Summarization statistics"},
		},
		Parameters: []engine.ParameterSpec{
			{Name: "service", Type: "string", Description: "Which model service to call", Required: true, Default: "openai", Options: []string{"openai", "groq", "ollama"}},
			{Name: "model", Type: "string", Description: "Model identifier understood by the service", Required: true, Default: "gpt-3.5-turbo"},
			{Name: "chunk_size", Type: "number", Description: "Maximum characters per chunk", Required: false, Default: 2000},
			{Name: "summarization_level", Type: "string", Description: "How condensed the summary should be", Required: false, Default: "medium", Options: []string{"small", "medium", "large"}},
			{Name: "max_chunks_per_level", Type: "number", Description: "How many summaries are combined per call", Required: false, Default: 5},
		},
	}
}

func (n *SummaryNode) RequiredCredentials(parameters map[string]interface{}) []string {
	switch strings.ToLower(strings.TrimSpace(stringify(parameters["service"]))) {
	case "groq":
		return []string{"GROQ_API_KEY"}
	case "ollama":
		return nil
	default:
		return []string{"OPENAI_API_KEY"}
	}
}

func (n *SummaryNode) Execute(ctx context.Context, inputs, parameters map[string]interface{}) (interface{}, error) {
	content := strings.TrimSpace(stringify(inputs["content"]))
	if content == "" {
		return map[string]interface{}{
			"summary": "",
			"success": false,
			"metadata": map[string]interface{}{
				"error":       "No content provided for summarization",
				"chunk_count": 0,
				"levels":      0,
			},
		}, nil
	}

	service := strings.ToLower(strings.TrimSpace(stringify(parameters["service"])))
	if service == "" {
		service = "openai"
	}
	model := strings.TrimSpace(stringify(parameters["model"]))
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	chunkSize := positiveIntParam(parameters["chunk_size"], 2000)
	fanIn := positiveIntParam(parameters["max_chunks_per_level"], 5)
	level := summarizationLevel(stringify(parameters["summarization_level"]))

	chunks := chunkContent(content, chunkSize)

	summaries := make([]string, 0, len(chunks))
	processed := 0
	for _, chunk := range chunks {
		summary, err := n.summarize(ctx, service, model, chunkPrompt(level), chunk)
		if err != nil {
			n.log.Warn("chunk summarization failed", "service", service, "model", model, "error", err)
			return summaryError("Error summarizing chunk: " + err.Error()), nil
		}
		summaries = append(summaries, summary)
		processed++
	}

	levels := 1
	for len(summaries) > 1 {
		var next []string
		for start := 0; start < len(summaries); start += fanIn {
			end := start + fanIn
			if end > len(summaries) {
				end = len(summaries)
			}
			combined, err := n.summarize(ctx, service, model, combinePrompt(level), strings.Join(summaries[start:end], "\n\n"))
			if err != nil {
				n.log.Warn("summary combination failed", "service", service, "model", model, "error", err)
				return summaryError("Error combining summaries: " + err.Error()), nil
			}
			next = append(next, combined)
			processed += end - start
		}
		summaries = next
		levels++
	}

	final := summaries[0]
	return map[string]interface{}{
		"summary": final,
		"metadata": map[string]interface{}{
			"chunk_count":            len(chunks),
			"levels":                 levels,
			"total_chunks_processed": processed,
			"final_summary_length":   len(final),
		},
	}, nil
}

func (n *SummaryNode) summarize(ctx context.Context, service, model, systemPrompt, content string) (string, error) {
	return chatCompletion(ctx, n.secrets, n.client, n.breaker, chatRequest{
		service:      service,
		model:        model,
		systemPrompt: systemPrompt,
		userPrompt:   content,
		temperature:  0.3,
	})
}

func summaryError(message string) map[string]interface{} {
	return map[string]interface{}{
		"summary": "",
		"success": false,
		"metadata": map[string]interface{}{
			"error": message,
		},
	}
}

func summarizationLevel(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "small":
		return "small"
	case "large":
		return "large"
	default:
		return "medium"
	}
}

func chunkPrompt(level string) string {
	switch level {
	case "small":
		return "You are a summarizer. Condense the given text into one or two sentences capturing only the essential point."
	case "large":
		return "You are a summarizer. Write a detailed summary of the given text, preserving key facts, names and figures."
	default:
		return "You are a summarizer. Write a concise paragraph summarizing the given text."
	}
}

func combinePrompt(level string) string {
	switch level {
	case "small":
		return "You are a summarizer. Merge the given partial summaries into one or two sentences without losing the main point."
	case "large":
		return "You are a summarizer. Merge the given partial summaries into one coherent, detailed summary."
	default:
		return "You are a summarizer. Merge the given partial summaries into one coherent paragraph."
	}
}

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// chunkContent packs whole sentences greedily until chunkSize characters.
// A single sentence longer than chunkSize becomes its own chunk.
func chunkContent(content string, chunkSize int) []string {
	sentences := splitSentences(content)

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+1+len(sentence) > chunkSize {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	if len(chunks) == 0 {
		chunks = []string{content}
	}
	return chunks
}

// splitSentences cuts after terminal punctuation followed by whitespace,
// keeping the punctuation with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(text, -1) {
		sentence := strings.TrimSpace(text[last : loc[0]+1])
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func positiveIntParam(v interface{}, fallback int) int {
	switch val := v.(type) {
	case int:
		if val > 0 {
			return val
		}
	case float64:
		if val > 0 {
			return int(val)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
