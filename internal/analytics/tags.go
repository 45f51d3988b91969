package analytics

import (
	"sort"

	"github.com/starford/memdash/internal/models"
)

// TagEntry lists the files a tag appears in.
type TagEntry struct {
	Tag   string   `json:"tag"`
	Count int      `json:"count"`
	Files []string `json:"files"`
}

// BuildTagIndex collects case-folded heading and bold texts per file and
// inverts them into tag -> files. The result is ordered by descending file
// count (ties keep first-seen order) and capped at the configured top N.
func (a *Analyzer) BuildTagIndex(notes []models.Note) []TagEntry {
	index := make(map[string]int)
	var entries []TagEntry

	for _, n := range sortedByPath(notes) {
		for _, tag := range extractTags(n.Content) {
			i, ok := index[tag]
			if !ok {
				i = len(entries)
				index[tag] = i
				entries = append(entries, TagEntry{Tag: tag})
			}
			entries[i].Files = append(entries[i].Files, n.Path)
		}
	}

	for i := range entries {
		entries[i].Count = len(entries[i].Files)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })

	if len(entries) > a.topTags {
		entries = entries[:a.topTags]
	}
	if entries == nil {
		entries = []TagEntry{}
	}
	return entries
}
