package utils

import "unicode/utf8"

// DefaultExcerptLength bounds how much of a response body ends up in errors and logs.
const DefaultExcerptLength = 512

// Excerpt returns at most max bytes of body as a string, cut on a rune boundary and
// suffixed with "..." when truncated.
func Excerpt(body []byte, max int) string {
	if max <= 0 || len(body) <= max {
		return string(body)
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
