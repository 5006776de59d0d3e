package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in counting key segments
// to prevent collision attacks where a caller-controlled identifier
// containing ':' could manipulate an adjacent identity's window.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
