package analytics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVocabulary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	data := "people:\n  - Ada\n  - ${VOCAB_TEST_PERSON}\nprojects:\n  - Atlas\ntools:\n  - make\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("VOCAB_TEST_PERSON", "Linus")

	v, err := LoadVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ada", "Linus"}, v.People)

	c := NewClassifier(v)
	assert.Equal(t, TypePerson, c.Classify("linus"))
	assert.Equal(t, TypeProject, c.Classify("ATLAS"))
	assert.Equal(t, TypeTool, c.Classify("make"))
}

func TestLoadVocabulary_EmptyEntryRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocabulary.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools:\n  - \"\"\n"), 0o644))

	_, err := LoadVocabulary(path)
	assert.Error(t, err)
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestNewClassifier_SkipsBlankAndDuplicateTerms(t *testing.T) {
	c := NewClassifier(Vocabulary{People: []string{" ", "Ada", "ada"}})

	require.Len(t, c.terms, 1)
	assert.Equal(t, "ada", c.terms[0].name)
}
