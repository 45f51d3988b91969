// Package models defines the domain types for memdash.
package models

import (
	"path"
	"regexp"
	"time"
)

var dailyNameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\.md$`)

// NoteMetadata describes a note file without its content.
type NoteMetadata struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	IsDaily   bool      `json:"is_daily"`
	Date      string    `json:"date,omitempty"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"modified"`
}

// Note is one markdown file of the corpus with its content.
type Note struct {
	NoteMetadata
	Content string `json:"content"`
}

// DailyDate reports the date encoded in a daily note path. The path must be
// exactly <dailyDir>/YYYY-MM-DD.md, using forward slashes.
func DailyDate(dailyDir, relPath string) (string, bool) {
	dir, name := path.Split(relPath)
	if path.Clean(dir) != path.Clean(dailyDir) {
		return "", false
	}
	m := dailyNameRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
