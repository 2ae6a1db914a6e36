package table

import "strings"

// Clean collapses every whitespace run (including non-breaking spaces the
// browser emits in rendered cells) into a single space and trims the ends.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}
