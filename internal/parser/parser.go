// Package parser extracts headings and bold spans from Markdown lines.
package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	headingRe = regexp.MustCompile(`^#{1,3}\s+(.+)`)
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// Lines splits content on '\n'. A trailing '\r' stays on the line.
func Lines(content string) []string {
	return strings.Split(content, "\n")
}

// Heading returns the raw text of a level 1-3 heading line.
// "#### deep" is not a heading for our purposes.
func Heading(line string) (string, bool) {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// BoldSpans returns the inner text of every **bold** span on the line, untrimmed.
func BoldSpans(line string) []string {
	matches := boldRe.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// StripMarkers removes every rune of markers from s and trims whitespace.
func StripMarkers(s, markers string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(markers, r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// LenWithin reports whether the rune length of s is in [min, max).
func LenWithin(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n < max
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
