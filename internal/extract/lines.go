package extract

import (
	"regexp"
	"strings"
)

// Line is one normalized receipt line. Index is the position within the
// non-blank sequence and feeds the proximity heuristics downstream.
type Line struct {
	Index int
	Text  string
}

var spaceRunRe = regexp.MustCompile(`\s+`)

// normalizeText converts non-breaking spaces to regular spaces, collapses
// internal whitespace runs, and trims.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = spaceRunRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// NormalizeLines cleans raw OCR text into the ordered non-blank line
// sequence. Nothing is dropped for content reasons here.
func NormalizeLines(raw string) []Line {
	var lines []Line
	for _, l := range strings.Split(raw, "\n") {
		text := normalizeText(l)
		if text == "" {
			continue
		}
		lines = append(lines, Line{Index: len(lines), Text: text})
	}
	return lines
}
