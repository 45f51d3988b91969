package mcpserver

import (
	"fmt"

	"github.com/starford/memdash/internal/storage"
)

const corpusLayoutURI = "memdash://corpus-layout"

// CorpusLayoutName is the display name of the layout resource.
const CorpusLayoutName = "Corpus Layout"

// CorpusLayout describes how the memory corpus is organized and how the
// analytics tools read it, so LLM consumers can interpret tool output and
// write notes that the dashboard picks up.
func CorpusLayout(layout storage.Layout) string {
	return fmt.Sprintf(`# Memory Corpus Layout

The corpus is one long-term note plus a directory of daily notes.

## Files

- %[1]s is the curated long-term memory. Distilled facts belong here.
- %[2]s/YYYY-MM-DD.md is the daily note for that date. Other *.md files in
  %[2]s/ are listed and analyzed but do not count as daily notes.
- Paths are relative to the workspace root and use forward slashes.

## What the analytics tools extract

- **Entities**: text of headings (#, ##, ###), text of **bold** spans, and
  known people, projects and tools mentioned anywhere. An entity needs at least
  two mentions unless it is a known person, project or tool.
- **Edges**: two entities are connected when they appear in the same file.
  The edge weight is the number of files they share.
- **Tags**: lower-cased heading and bold texts, counted by file.

## Health

- A file is stale when it has not been modified for more than 30 days
  (configurable).
- A coverage gap is a recent day (the last 30 by default) without a daily note.
- The distillation ratio is the size of %[1]s divided by the total size of
  daily notes.

## Writing

- Append to today's daily note rather than editing old ones.
- Pass the checksum from read_memory as if_match to write_memory to avoid
  overwriting concurrent edits.
`, layout.LongTermNote, layout.DailyDir)
}
