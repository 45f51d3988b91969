package analytics

import (
	"sort"
	"strings"

	"github.com/starford/memdash/internal/models"
	"github.com/starford/memdash/internal/parser"
)

const (
	edgeKeySep     = "||"
	maxSnippetText = 200
)

// Snippet is a short excerpt showing where an entity was mentioned.
type Snippet struct {
	File string `json:"file"`
	Text string `json:"text"`
}

// Entity is a deduplicated, classified aggregate of occurrences.
type Entity struct {
	ID           string     `json:"id"`
	Label        string     `json:"label"`
	Type         EntityType `json:"type"`
	MentionCount int        `json:"mention_count"`
	Snippets     []Snippet  `json:"snippets"`
}

// Edge is an undirected co-mention between two entities. Source sorts before Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Key returns the edge identity, e.g. "aaron||openclaw".
func (e Edge) Key() string {
	return e.Source + edgeKeySep + e.Target
}

// Graph is the entity co-mention graph.
type Graph struct {
	Nodes []Entity `json:"nodes"`
	Edges []Edge   `json:"edges"`
}

// EntityID normalizes a name into an entity id: lower-cased with every run
// of Unicode whitespace replaced by a single hyphen.
func EntityID(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// BuildEntityGraph folds the occurrences of every note into entities and
// links entities that share a file. Notes are processed in relative-path
// order so the first-seen label of an id does not depend on input order.
func (a *Analyzer) BuildEntityGraph(notes []models.Note) Graph {
	ordered := sortedByPath(notes)

	index := make(map[string]int)
	var entities []*Entity
	fileIDs := make([][]string, 0, len(ordered))

	for _, n := range ordered {
		var ids []string
		inFile := make(map[string]struct{})

		for _, occ := range a.classifier.ExtractEntities(n.Path, n.Content) {
			id := EntityID(occ.Name)
			if len([]rune(id)) < minNameLen {
				continue
			}
			i, ok := index[id]
			if !ok {
				i = len(entities)
				index[id] = i
				entities = append(entities, &Entity{
					ID:       id,
					Label:    occ.Name,
					Type:     a.classifier.Classify(occ.Name),
					Snippets: []Snippet{},
				})
			}
			e := entities[i]
			e.MentionCount++
			if len(e.Snippets) < a.snippetCap {
				e.Snippets = append(e.Snippets, Snippet{
					File: occ.File,
					Text: parser.Truncate(occ.Snippet, maxSnippetText),
				})
			}
			if _, dup := inFile[id]; !dup {
				inFile[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		fileIDs = append(fileIDs, ids)
	}

	g := Graph{Nodes: []Entity{}, Edges: []Edge{}}
	kept := make(map[string]struct{})
	for _, e := range entities {
		if significant(e) {
			kept[e.ID] = struct{}{}
			g.Nodes = append(g.Nodes, *e)
		}
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })

	weights := make(map[pair]int)
	for _, ids := range fileIDs {
		var present []string
		for _, id := range ids {
			if _, ok := kept[id]; ok {
				present = append(present, id)
			}
		}
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				weights[newPair(present[i], present[j])]++
			}
		}
	}

	pairs := make([]pair, 0, len(weights))
	for p := range weights {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, p := range pairs {
		g.Edges = append(g.Edges, Edge{Source: p[0], Target: p[1], Weight: weights[p]})
	}
	return g
}

// significant keeps recognized entities and anything mentioned more than once.
func significant(e *Entity) bool {
	return e.MentionCount >= 2 || e.Type != TypeOther
}

// pair is an unordered id pair stored in sorted order.
type pair [2]string

func newPair(a, b string) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a, b}
}
