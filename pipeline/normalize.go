package pipeline

import "strings"

// Normalize collapses whitespace and lowercases. Parses and regex triggers work on its output.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}
