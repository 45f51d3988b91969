package analytics

import (
	"sort"
	"time"

	"github.com/starford/memdash/internal/models"
)

// Options tunes the analyzer. Zero fields fall back to defaults.
type Options struct {
	LongTermNote string
	DailyDir     string
	StaleAfter   time.Duration
	CoverageDays int
	TopTags      int
	SnippetCap   int
}

// DefaultOptions returns the defaults used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		LongTermNote: "MEMORY.md",
		DailyDir:     "memory",
		StaleAfter:   30 * 24 * time.Hour,
		CoverageDays: 30,
		TopTags:      50,
		SnippetCap:   5,
	}
}

// Analyzer computes derived views over a corpus snapshot.
// It holds only immutable configuration and is safe for concurrent use.
type Analyzer struct {
	classifier   *Classifier
	longTermNote string
	dailyDir     string
	staleAfter   time.Duration
	coverageDays int
	topTags      int
	snippetCap   int
}

// New creates an Analyzer over the given vocabulary.
func New(vocab Vocabulary, opts Options) *Analyzer {
	def := DefaultOptions()
	if opts.LongTermNote == "" {
		opts.LongTermNote = def.LongTermNote
	}
	if opts.DailyDir == "" {
		opts.DailyDir = def.DailyDir
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = def.StaleAfter
	}
	if opts.CoverageDays <= 0 {
		opts.CoverageDays = def.CoverageDays
	}
	if opts.TopTags <= 0 {
		opts.TopTags = def.TopTags
	}
	if opts.SnippetCap <= 0 {
		opts.SnippetCap = def.SnippetCap
	}
	return &Analyzer{
		classifier:   NewClassifier(vocab),
		longTermNote: opts.LongTermNote,
		dailyDir:     opts.DailyDir,
		staleAfter:   opts.StaleAfter,
		coverageDays: opts.CoverageDays,
		topTags:      opts.TopTags,
		snippetCap:   opts.SnippetCap,
	}
}

// Classifier returns the analyzer's classifier.
func (a *Analyzer) Classifier() *Classifier {
	return a.classifier
}

func sortedByPath(notes []models.Note) []models.Note {
	out := make([]models.Note, len(notes))
	copy(out, notes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
