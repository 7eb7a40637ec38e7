package ingestion_engine

import (
	"regexp"
	"strings"
	"unicode"
)

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// Normalize strips control characters and collapses unsafe sequences so the
// chunker only ever sees printable text with plain newlines and tabs.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n' || r == '\t':
			b.WriteRune(r)
		case unicode.IsControl(r):
			// drop
		case r == '\uFFFD', r == '\uFEFF', r == '\u200B', r == '\u200C', r == '\u200D':
			// replacement char, BOM and zero-width runes carry no content
		default:
			b.WriteRune(r)
		}
	}

	out := excessBlankLines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}
