// Package analytics derives an entity graph, a tag index, and a corpus
// health summary from a snapshot of memory notes.
//
// Every function here is pure over its arguments: results are recomputed
// from the notes passed in and nothing is cached between calls.
package analytics

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	pkgconfig "github.com/starford/memdash/pkg/config"
)

// EntityType classifies an entity.
type EntityType string

// Entity types.
const (
	TypePerson  EntityType = "person"
	TypeProject EntityType = "project"
	TypeTool    EntityType = "tool"
	TypeOther   EntityType = "other"
)

// Vocabulary lists the known names per entity type.
type Vocabulary struct {
	People   []string `yaml:"people"`
	Projects []string `yaml:"projects"`
	Tools    []string `yaml:"tools"`
}

// Validate validates the vocabulary.
func (v *Vocabulary) Validate() error {
	return validation.ValidateStruct(v,
		validation.Field(&v.People, validation.Each(validation.Required)),
		validation.Field(&v.Projects, validation.Each(validation.Required)),
		validation.Field(&v.Tools, validation.Each(validation.Required)),
	)
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		People:   []string{"aaron", "grace"},
		Projects: []string{"orgnext", "recall", "clawmemory", "openclaw memory manager"},
		Tools: []string{
			"openclaw", "claude code", "claude", "cursor", "github", "git", "npm",
			"next.js", "nextjs", "tailwind", "shadcn", "elevenlabs",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file.
func LoadVocabulary(path string) (Vocabulary, error) {
	var v Vocabulary
	if err := pkgconfig.Load(path, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("analytics: load vocabulary: %w", err)
	}
	return v, nil
}

// term is one known name with its precompiled whole-word matcher.
type term struct {
	name string
	typ  EntityType
	re   *regexp.Regexp
}

// Classifier maps names to entity types and finds known names in text.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	types map[string]EntityType
	terms []term
}

// NewClassifier builds a Classifier. Names are lower-cased; a name listed
// under several types keeps the first one in people, projects, tools order.
func NewClassifier(v Vocabulary) *Classifier {
	c := &Classifier{types: make(map[string]EntityType)}
	add := func(names []string, typ EntityType) {
		for _, n := range names {
			n = strings.ToLower(strings.TrimSpace(n))
			if n == "" {
				continue
			}
			if _, dup := c.types[n]; dup {
				continue
			}
			c.types[n] = typ
			c.terms = append(c.terms, term{
				name: n,
				typ:  typ,
				re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(n) + `\b`),
			})
		}
	}
	add(v.People, TypePerson)
	add(v.Projects, TypeProject)
	add(v.Tools, TypeTool)
	return c
}

// Classify returns the type of name, or TypeOther when it is not in the vocabulary.
func (c *Classifier) Classify(name string) EntityType {
	if t, ok := c.types[strings.ToLower(name)]; ok {
		return t
	}
	return TypeOther
}
