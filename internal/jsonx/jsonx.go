// Package jsonx extracts JSON objects from LLM chat output, which may wrap
// the payload in markdown fences or surround it with prose.
package jsonx

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in content")

// Extract locates the JSON object inside content. It tries, in order: the
// content as-is, the body of a ``` fenced block, and finally the span from
// the first '{' to the last '}'.
func Extract(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrNoJSON
	}
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	if fenced := stripFence(trimmed); fenced != "" && json.Valid([]byte(fenced)) {
		return fenced, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		span := strings.TrimSpace(trimmed[start : end+1])
		if json.Valid([]byte(span)) {
			return span, nil
		}
	}
	return "", ErrNoJSON
}

// Decode extracts and unmarshals the JSON object in content into v.
func Decode(content string, v any) error {
	payload, err := Extract(content)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("parse llm response: %w", err)
	}
	return nil
}

func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	body := strings.TrimPrefix(content, "```")
	if idx := strings.IndexRune(body, '\n'); idx >= 0 {
		body = body[idx+1:]
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
