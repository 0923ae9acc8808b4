package engine

import "strings"

// In-band failure detection over stored node results. The structured checks
// (explicit success flag, metadata.error diagnostic) are the primary path;
// the string heuristics below them are a compatibility shim for nodes that
// report failure inside legacy-shaped text fields.

var errorPrefixes = []string{"Error:", "ERROR:", "error:"}

var errorIndicators = []string{"error:", "failed to", "not configured", "not set", "not found"}

// messagePriority is the fixed field order tried when extracting a message.
var messagePriority = []string{"error", "status", "query", "response", "summary", "text"}

const genericErrorMessage = "An error occurred during node execution"

// IsErrorOutput reports whether a stored result encodes failure in-band.
func IsErrorOutput(output map[string]interface{}) bool {
	if output == nil {
		return false
	}

	// Explicit outcome flag.
	if success, ok := output["success"].(bool); ok && !success {
		return true
	}

	// Nested diagnostic field.
	if metadata, ok := output["metadata"].(map[string]interface{}); ok {
		if !IsEmptyValue(metadata["error"]) {
			return true
		}
	}

	// Legacy shim: error-style prefixes and keyword heuristics in text
	// fields. Not exhaustive by design.
	for _, value := range output {
		text, ok := value.(string)
		if !ok {
			continue
		}
		if hasErrorPrefix(text) {
			return true
		}
		lower := strings.ToLower(text)
		if strings.Contains(lower, "error") && containsAny(lower, "failed", "not available", "not found", "invalid", "missing") {
			if containsAny(lower, errorIndicators...) {
				return true
			}
		}
	}

	return false
}

// ExtractErrorMessage pulls a human-readable message out of a failed result.
// It prefers the nested diagnostic field, then a fixed priority list of
// common field names, else a generic fallback. Returns "" for results that
// are not in error.
func ExtractErrorMessage(output map[string]interface{}) string {
	if !IsErrorOutput(output) {
		return ""
	}

	if metadata, ok := output["metadata"].(map[string]interface{}); ok {
		if msg, ok := metadata["error"].(string); ok && msg != "" {
			return msg
		}
	}

	for _, field := range messagePriority {
		value, ok := output[field]
		if !ok {
			continue
		}
		text, ok := value.(string)
		if !ok {
			continue
		}
		if hasErrorPrefix(text) {
			return text
		}
		lower := strings.ToLower(text)
		if containsAny(lower, "error:", "failed to", "not configured", "not set", "not found", "invalid") {
			return text
		}
	}

	return genericErrorMessage
}

func hasErrorPrefix(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, prefix := range errorPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
