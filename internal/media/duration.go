package media

import (
	"strconv"
	"strings"
)

// ParseDuration converts a feed duration string to whole seconds.
// Accepted grammars: a bare integer (seconds), "MM:SS", or "HH:MM:SS".
// Anything else fails closed: (0, false).
func ParseDuration(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}
