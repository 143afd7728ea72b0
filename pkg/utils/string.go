package utils

import "unicode/utf8"

// Truncate cuts s to at most maxLen runes and appends "..." when it had to
// cut.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n >= maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
