package markup

import (
	"strings"
	"testing"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "  Soft   cotton shirt ", "Soft cotton shirt"},
		{"list item", "<li>Soft cotton shirt</li>", "Soft cotton shirt"},
		{"entities", "<li>Salt &amp; pepper</li>", "Salt & pepper"},
		{"adjacent items", "<li>One</li><li>Two</li>", "One Two"},
		{"ampersand only", "Salt & pepper", "Salt & pepper"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.input); got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToPlainText_Markdown(t *testing.T) {
	got := ToPlainText("# Headphones\n\nGreat **sound** and a *long* battery.")
	if strings.Contains(got, "#") || strings.Contains(got, "*") {
		t.Errorf("markdown syntax left in %q", got)
	}
	if !strings.Contains(got, "Great sound and a long battery.") {
		t.Errorf("unexpected plain text %q", got)
	}
}

func TestToPlainText_Empty(t *testing.T) {
	if got := ToPlainText("   "); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestBulletsHTML(t *testing.T) {
	got := BulletsHTML([]string{"Black finish", "Salt & pepper"})
	want := "<li>Black finish</li><li>Salt &amp; pepper</li>"
	if got != want {
		t.Errorf("BulletsHTML = %q, want %q", got, want)
	}
	if PlainText(got) != "Black finish Salt & pepper" {
		t.Errorf("round trip through PlainText failed: %q", PlainText(got))
	}
}
