package extract

import (
	"regexp"
	"strings"
)

// MinTextChars is the shortest normalized text accepted as quiz source.
const MinTextChars = 30

var (
	carriageReturns = regexp.MustCompile(`\r+`)
	blankLineRuns   = regexp.MustCompile(`\n{3,}`)
)

// Normalize replaces NUL bytes, turns carriage returns into newlines,
// collapses runs of blank lines and trims the result.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\x00", " ")
	text = carriageReturns.ReplaceAllString(text, "\n")
	text = blankLineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
