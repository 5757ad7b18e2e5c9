package generator

import (
	"errors"
	"testing"

	"github.com/valpere/listingfix/internal/content"
)

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no thinking blocks",
			input:    `{"title": "T"}`,
			expected: `{"title": "T"}`,
		},
		{
			name:     "simple thinking block",
			input:    "<thinking>Check the rules</thinking>{}",
			expected: "{}",
		},
		{
			name:     "think block",
			input:    "<think>Count the bullets</think>\n{}",
			expected: "{}",
		},
		{
			name:     "multiple blocks",
			input:    "<reasoning>First</reasoning>{}<reflection>Second</reflection>",
			expected: "{}",
		},
		{
			name:     "truncated thinking block (no closing)",
			input:    "{}<thinking>Still working",
			expected: "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeThinkingBlocks(tt.input)
			if result != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveInstructionEchoes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no echo",
			input:    "{}",
			expected: "{}",
		},
		{
			name:     "here is the listing",
			input:    "Here is the updated listing: {}",
			expected: "{}",
		},
		{
			name:     "here's your json",
			input:    "Here's your JSON:\n{}",
			expected: "{}",
		},
		{
			name:     "sure echo",
			input:    "Sure, here is the revised product listing: {}",
			expected: "{}",
		},
		{
			name:     "echo not at start (should not match)",
			input:    "Before Here is the listing: {}",
			expected: "Before Here is the listing: {}",
		},
		{
			name:     "echo without colon (should not match)",
			input:    "Here is the listing {}",
			expected: "Here is the listing {}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := removeInstructionEchoes(tt.input)
			if result != tt.expected {
				t.Errorf("removeInstructionEchoes(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{}\n```", "{}"},
		{"no fence", "{}", "{}"},
		{"unclosed fence", "```json\n{}", "```json\n{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeCodeFence(tt.input); got != tt.expected {
				t.Errorf("removeCodeFence(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		input, expected string
	}{
		{`noise {"a": {"b": 1}} trailing`, `{"a": {"b": 1}}`},
		{"no object here", "no object here"},
		{"} backwards {", "} backwards {"},
	}
	for _, tt := range tests {
		if got := ExtractJSON(tt.input); got != tt.expected {
			t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDecode(t *testing.T) {
	raw := "<think>plan</think>Here is the listing:\n```json\n" +
		`{"title":"TechBrand Headphones","bullets":["One"],"description":"D","meta_title":"M","meta_description":"MD"}` +
		"\n```"

	c, err := decode(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Title != "TechBrand Headphones" || len(c.Bullets) != 1 {
		t.Errorf("unexpected candidate %+v", c)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := decode("I cannot help with that.")
	if !errors.Is(err, content.ErrMalformedCandidate) {
		t.Errorf("expected ErrMalformedCandidate, got %v", err)
	}
}
