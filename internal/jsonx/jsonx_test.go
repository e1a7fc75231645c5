package jsonx

import (
	"errors"
	"testing"
)

func TestDecodePriorityOrder(t *testing.T) {
	type payload struct {
		Answer string `json:"answer"`
		Reason string `json:"reason"`
	}

	testCases := []struct {
		name    string
		content string
		expect  string
	}{
		{"strict json", `{"reason":"direct","answer":"B"}`, "B"},
		{"strict with whitespace", "\n  {\"reason\":\"padded\",\"answer\":\"C\"}  \n", "C"},
		{"fenced block", "```json\n{\"reason\":\"fenced\",\"answer\":\"D\"}\n```", "D"},
		{"fence without language", "```\n{\"reason\":\"bare fence\",\"answer\":\"A\"}\n```", "A"},
		{"prose around object", "Sure, here is the result: {\"reason\":\"chatty\",\"answer\":\"B\"} hope that helps", "B"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out payload
			if err := Decode(tc.content, &out); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if out.Answer != tc.expect {
				t.Fatalf("expected answer %q got %q", tc.expect, out.Answer)
			}
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t"},
		{"no object", "the answer is B"},
		{"truncated object", `{"reason":"cut off`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out map[string]any
			err := Decode(tc.content, &out)
			if !errors.Is(err, ErrNoJSON) {
				t.Fatalf("expected ErrNoJSON, got %v", err)
			}
		})
	}
}
