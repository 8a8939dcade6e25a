package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen bytes followed by "...". It never
// splits a UTF-8 sequence, so the result may be a few bytes shorter.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
