package sources

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{
			name:     "short text unchanged",
			input:    "A short summary.",
			maxLen:   50,
			expected: "A short summary.",
		},
		{
			name:     "tags stripped",
			input:    "<p>Hello <b>world</b></p>",
			maxLen:   50,
			expected: "Hello world",
		},
		{
			name:     "long text cut at last space",
			input:    "one two three four five",
			maxLen:   12,
			expected: "one two...",
		},
		{
			name:     "multi-byte text cut on a rune boundary",
			input:    strings.Repeat("記", 10),
			maxLen:   10,
			expected: strings.Repeat("記", 3) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := excerpt(tt.input, tt.maxLen)
			if got != tt.expected {
				t.Errorf("excerpt(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
			if !utf8.ValidString(got) {
				t.Errorf("excerpt(%q, %d) produced invalid UTF-8", tt.input, tt.maxLen)
			}
		})
	}
}
