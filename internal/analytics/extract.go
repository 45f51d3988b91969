package analytics

import (
	"strings"

	"github.com/starford/memdash/internal/parser"
)

const (
	// entityMarkers are stripped from heading text before it becomes an entity name.
	entityMarkers = "*_`"
	// tagMarkers additionally drop '#' so "## #topic" and "## topic" agree.
	tagMarkers = "*_`#"

	minNameLen      = 2
	maxEntityLen    = 50
	maxTagLen       = 40
	contextFallback = 100
)

// Occurrence is one raw mention of a candidate entity in one file.
type Occurrence struct {
	Name    string
	Snippet string
	File    string
}

// ExtractEntities scans a note for heading phrases, bold phrases, and
// vocabulary mentions. Rules are additive: the same text may yield several
// occurrences, and deduplication is left to the caller.
func (c *Classifier) ExtractEntities(file, content string) []Occurrence {
	var out []Occurrence

	for _, line := range parser.Lines(content) {
		snippet := strings.TrimSpace(line)

		if h, ok := parser.Heading(line); ok {
			name := parser.StripMarkers(h, entityMarkers)
			if parser.LenWithin(name, minNameLen, maxEntityLen) {
				out = append(out, Occurrence{Name: name, Snippet: snippet, File: file})
			}
		}

		for _, b := range parser.BoldSpans(line) {
			name := strings.TrimSpace(b)
			if parser.LenWithin(name, minNameLen, maxEntityLen) {
				out = append(out, Occurrence{Name: name, Snippet: snippet, File: file})
			}
		}
	}

	for _, t := range c.terms {
		loc := t.re.FindStringIndex(content)
		if loc == nil {
			continue
		}
		out = append(out, Occurrence{
			Name:    content[loc[0]:loc[1]],
			Snippet: lineAround(content, loc[0]),
			File:    file,
		})
	}

	return out
}

// lineAround returns the trimmed line containing offset. When the line has no
// terminating newline the excerpt is capped at contextFallback runes from the
// line start.
func lineAround(content string, offset int) string {
	start := strings.LastIndexByte(content[:offset], '\n') + 1
	if end := strings.IndexByte(content[offset:], '\n'); end >= 0 {
		return strings.TrimSpace(content[start : offset+end])
	}
	return strings.TrimSpace(parser.Truncate(content[start:], contextFallback))
}

// extractTags returns the distinct case-folded heading and bold texts of a note
// in first-seen order.
func extractTags(content string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(tag string) {
		if !parser.LenWithin(tag, minNameLen, maxTagLen) {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	for _, line := range parser.Lines(content) {
		if h, ok := parser.Heading(line); ok {
			add(strings.ToLower(parser.StripMarkers(h, tagMarkers)))
		}
		for _, b := range parser.BoldSpans(line) {
			add(strings.ToLower(strings.TrimSpace(b)))
		}
	}
	return out
}
