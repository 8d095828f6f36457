// Package chunk serializes parsed units into self-contained records for the
// embedding and narrative-analysis consumers, and packs them into batches
// that fit a token budget.
package chunk

import (
	"sort"

	"github.com/leapstack-labs/plmap/internal/engine"
	"github.com/leapstack-labs/plmap/pkg/core"
)

// DefaultCharsPerToken is the token estimate divisor used when none is given.
const DefaultCharsPerToken = 4

// Dependency is one outgoing edge of a chunk's unit.
type Dependency struct {
	Kind core.RefKind `json:"kind" yaml:"kind"`
	Name string       `json:"name" yaml:"name"`
}

// Chunk is one unit with the metadata needed to process it in isolation.
// ID is stable across reparses; ContentHash changes only when the
// normalised text does.
type Chunk struct {
	ID            string        `json:"id" yaml:"id"`
	Kind          core.NodeKind `json:"kind" yaml:"kind"`
	Name          string        `json:"name" yaml:"name"`
	QualifiedName string        `json:"qualified_name" yaml:"qualified_name"`
	Signature     string        `json:"signature,omitempty" yaml:"signature,omitempty"`
	Parents       []string      `json:"parents,omitempty" yaml:"parents,omitempty"`
	Dependencies  []Dependency  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	File          string        `json:"file,omitempty" yaml:"file,omitempty"`
	StartLine     int           `json:"start_line" yaml:"start_line"`
	EndLine       int           `json:"end_line" yaml:"end_line"`
	Doc           string        `json:"doc,omitempty" yaml:"doc,omitempty"`
	ContentHash   string        `json:"content_hash" yaml:"content_hash"`
	Text          string        `json:"text" yaml:"text"`
}

// Build emits one chunk per unit of res, in unit order.
func Build(res *engine.ParseResult) []Chunk {
	units := res.Units()
	chunks := make([]Chunk, 0, len(units))
	for _, u := range units {
		text := res.Text(u)
		c := Chunk{
			ID:            u.ID,
			Kind:          u.Kind,
			Name:          u.DisplayName,
			QualifiedName: res.QualifiedName(u),
			Dependencies:  dependencies(res, u.ID),
			File:          u.File,
			StartLine:     u.StartLine(),
			EndLine:       u.EndLine(),
			Doc:           u.Doc,
			ContentHash:   core.ContentHash(text),
			Text:          text,
		}
		if u.Kind.IsCallable() {
			c.Signature = u.Signature.String()
		}
		for _, p := range res.Ancestors(u) {
			c.Parents = append(c.Parents, p.DisplayName)
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// dependencies returns the outgoing edges of id, deduplicated by kind and
// target name and sorted by kind then name.
func dependencies(res *engine.ParseResult, id string) []Dependency {
	seen := make(map[Dependency]bool)
	var deps []Dependency
	for _, e := range res.Graph().Dependencies(id) {
		d := Dependency{Kind: e.Kind, Name: targetName(res, e.To)}
		if seen[d] {
			continue
		}
		seen[d] = true
		deps = append(deps, d)
	}
	sort.SliceStable(deps, func(i, j int) bool {
		if ri, rj := deps[i].Kind.Rank(), deps[j].Kind.Rank(); ri != rj {
			return ri < rj
		}
		return deps[i].Name < deps[j].Name
	})
	return deps
}

func targetName(res *engine.ParseResult, id string) string {
	if u, ok := res.Unit(id); ok {
		return res.QualifiedName(u)
	}
	if n, ok := res.Graph().GetNode(id); ok {
		return n.Label
	}
	return id
}

// EstimateTokens approximates the token count of a chunk's text.
func EstimateTokens(c Chunk, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return len(c.Text) / charsPerToken
}

// Batch packs chunks in order into batches whose estimated token total stays
// within maxTokens. A chunk that alone exceeds the budget forms its own
// batch. A non-positive budget puts everything in one batch.
func Batch(chunks []Chunk, maxTokens, charsPerToken int) [][]Chunk {
	if len(chunks) == 0 {
		return nil
	}
	if maxTokens <= 0 {
		return [][]Chunk{append([]Chunk(nil), chunks...)}
	}

	var (
		batches [][]Chunk
		current []Chunk
		used    int
	)
	for _, c := range chunks {
		n := EstimateTokens(c, charsPerToken)
		if len(current) > 0 && used+n > maxTokens {
			batches = append(batches, current)
			current, used = nil, 0
		}
		current = append(current, c)
		used += n
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}
