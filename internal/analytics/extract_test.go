package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(occs []Occurrence) []string {
	out := make([]string, 0, len(occs))
	for _, o := range occs {
		out = append(out, o.Name)
	}
	return out
}

func TestClassify(t *testing.T) {
	c := NewClassifier(Vocabulary{
		People:   []string{"Aaron"},
		Projects: []string{"recall", "shared"},
		Tools:    []string{"git", "shared"},
	})

	assert.Equal(t, TypePerson, c.Classify("aaron"))
	assert.Equal(t, TypePerson, c.Classify("AARON"))
	assert.Equal(t, TypeProject, c.Classify("Recall"))
	assert.Equal(t, TypeTool, c.Classify("git"))
	assert.Equal(t, TypeProject, c.Classify("shared"), "projects win over tools")
	assert.Equal(t, TypeOther, c.Classify("Weekly Review"))
}

func TestExtractEntities_HeadingAndVocabularyAreAdditive(t *testing.T) {
	c := NewClassifier(DefaultVocabulary())

	occs := c.ExtractEntities("memory/2024-01-01.md", "# Aaron\n\n**OpenClaw** helps Aaron.")

	assert.Equal(t, []string{"Aaron", "OpenClaw", "Aaron", "OpenClaw"}, names(occs))
	assert.Equal(t, "# Aaron", occs[0].Snippet)
	assert.Equal(t, "**OpenClaw** helps Aaron.", occs[1].Snippet)
	assert.Equal(t, "# Aaron", occs[2].Snippet, "vocabulary snippet is the line of the first match")
	for _, o := range occs {
		assert.Equal(t, "memory/2024-01-01.md", o.File)
	}
}

func TestExtractEntities_LengthBounds(t *testing.T) {
	c := NewClassifier(Vocabulary{})

	assert.Empty(t, c.ExtractEntities("a.md", "# A"))
	assert.Empty(t, c.ExtractEntities("a.md", "**x**"))
	assert.Empty(t, c.ExtractEntities("a.md", "# "+strings.Repeat("y", 50)))

	occs := c.ExtractEntities("a.md", "# "+strings.Repeat("y", 49))
	require.Len(t, occs, 1)
}

func TestExtractEntities_HeadingStripsEmphasis(t *testing.T) {
	c := NewClassifier(Vocabulary{})

	occs := c.ExtractEntities("a.md", "## **Launch** `plan`\n#### Too deep")

	// Heading text plus the bold span inside it.
	assert.Equal(t, []string{"Launch plan", "Launch"}, names(occs))
}

func TestExtractEntities_WholeWordOnly(t *testing.T) {
	c := NewClassifier(Vocabulary{Tools: []string{"git", "github"}})

	occs := c.ExtractEntities("a.md", "pushed to GitHub today")

	assert.Equal(t, []string{"GitHub"}, names(occs))
}

func TestExtractEntities_OneOccurrencePerVocabularyTerm(t *testing.T) {
	c := NewClassifier(Vocabulary{People: []string{"grace"}})

	occs := c.ExtractEntities("a.md", "first line\nmet Grace\nthen grace again\ngrace")

	require.Len(t, occs, 1)
	assert.Equal(t, "Grace", occs[0].Name)
	assert.Equal(t, "met Grace", occs[0].Snippet)
}

func TestExtractEntities_LastLineSnippetCapped(t *testing.T) {
	c := NewClassifier(Vocabulary{Tools: []string{"npm"}})
	line := "npm " + strings.Repeat("z", 200)

	occs := c.ExtractEntities("a.md", "intro\n"+line)

	require.Len(t, occs, 1)
	assert.Equal(t, line[:100], occs[0].Snippet)
}

func TestExtractTags(t *testing.T) {
	tags := extractTags("# Daily #Log\n**Focus** and **focus**\n## A\n### `Ops`")

	assert.Equal(t, []string{"daily log", "focus", "ops"}, tags)
}
