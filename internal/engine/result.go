package engine

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/plmap/internal/dag"
	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/lineage"
	"github.com/leapstack-labs/plmap/pkg/token"
)

// ParseResult is the immutable outcome of parsing a file, or of merging a
// corpus. Accessors return copies of slices; the units they point to are
// shared and must not be modified.
type ParseResult struct {
	file      string
	sources   map[string]string
	tokens    []token.Token
	units     []*core.SourceUnit
	byID      map[string]*core.SourceUnit
	extracted []core.Reference // as extracted, before resolution
	refs      []core.Reference
	leaves    []lineage.Leaf
	graph     *dag.Graph
	cycles    [][]string
	diags     []core.Diagnostic
	cancelled bool
}

// newResult resolves refs against units and builds the graph. diags are the
// diagnostics gathered before resolution.
func newResult(file string, sources map[string]string, toks []token.Token, units []*core.SourceUnit, refs []core.Reference, diags []core.Diagnostic) *ParseResult {
	r := &ParseResult{
		file:      file,
		sources:   sources,
		tokens:    toks,
		units:     units,
		byID:      make(map[string]*core.SourceUnit, len(units)),
		extracted: refs,
	}
	for _, u := range units {
		r.byID[u.ID] = u
	}

	res := lineage.Resolve(units, refs)
	r.refs = res.References
	r.leaves = res.Leaves
	r.graph = buildGraph(units, res)
	r.cycles = r.graph.DetectCycles()

	r.diags = append(r.diags, diags...)
	r.diags = append(r.diags, res.Diagnostics...)
	for _, c := range r.cycles {
		r.diags = append(r.diags, r.cycleDiagnostic(c))
	}
	return r
}

// buildGraph adds every unit and leaf as a node and every resolved reference
// as an edge.
func buildGraph(units []*core.SourceUnit, res lineage.Resolution) *dag.Graph {
	g := dag.NewGraph()
	for _, u := range units {
		g.AddNode(u.ID, u.DisplayName, u.Kind, u)
	}
	for _, l := range res.Leaves {
		g.AddNode(l.ID, l.Name, l.Kind, l)
	}
	for _, ref := range res.References {
		// Both endpoints exist: sources are units and every reference
		// resolves to a unit or a leaf.
		_ = g.AddEdge(ref.SourceID, ref.ResolvedID, ref.Kind)
	}
	return g
}

func (r *ParseResult) cycleDiagnostic(members []string) core.Diagnostic {
	names := make([]string, 0, len(members))
	var first *core.SourceUnit
	for _, id := range members {
		u := r.byID[id]
		if u == nil {
			names = append(names, id)
			continue
		}
		names = append(names, r.QualifiedName(u))
		if first == nil {
			first = u
		}
	}
	sort.Strings(names)

	var span *token.Span
	if first != nil {
		s := first.Span
		span = &s
	}
	d := core.NewDiagnostic(core.DiagCycleDetected, span, "call cycle between %s", strings.Join(names, ", "))
	if first != nil {
		d.File = first.File
	}
	d.Members = append([]string(nil), members...)
	return d
}

// File returns the file name, or "" for a merged corpus result.
func (r *ParseResult) File() string { return r.file }

// Tokens returns the token stream. It is empty for a merged corpus result.
func (r *ParseResult) Tokens() []token.Token { return append([]token.Token(nil), r.tokens...) }

// Units returns the units ordered by file and span start.
func (r *ParseResult) Units() []*core.SourceUnit { return append([]*core.SourceUnit(nil), r.units...) }

// References returns the resolved references.
func (r *ParseResult) References() []core.Reference { return append([]core.Reference(nil), r.refs...) }

// Leaves returns the synthetic leaf nodes sorted by id.
func (r *ParseResult) Leaves() []lineage.Leaf { return append([]lineage.Leaf(nil), r.leaves...) }

// Graph returns the dependency graph.
func (r *ParseResult) Graph() *dag.Graph { return r.graph }

// Cycles returns the call cycles detected when the graph was built.
func (r *ParseResult) Cycles() [][]string {
	out := make([][]string, len(r.cycles))
	for i, c := range r.cycles {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// Diagnostics returns every diagnostic in the order it was produced.
func (r *ParseResult) Diagnostics() []core.Diagnostic {
	return append([]core.Diagnostic(nil), r.diags...)
}

// Cancelled reports whether parsing was cancelled.
func (r *ParseResult) Cancelled() bool { return r.cancelled }

// Unit returns a unit by id.
func (r *ParseResult) Unit(id string) (*core.SourceUnit, bool) {
	u, ok := r.byID[id]
	return u, ok
}

// FindUnits returns the units whose name or qualified name matches name
// case-insensitively.
func (r *ParseResult) FindUnits(name string) []*core.SourceUnit {
	want := strings.ToUpper(name)
	var out []*core.SourceUnit
	for _, u := range r.units {
		if u.Name == want || strings.ToUpper(r.QualifiedName(u)) == want {
			out = append(out, u)
		}
	}
	return out
}

// Ancestors returns the parent chain of u, outermost first.
func (r *ParseResult) Ancestors(u *core.SourceUnit) []*core.SourceUnit {
	var chain []*core.SourceUnit
	for p := r.byID[u.ParentID]; p != nil; p = r.byID[p.ParentID] {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// QualifiedName joins the display names of u's ancestors and u with dots.
func (r *ParseResult) QualifiedName(u *core.SourceUnit) string {
	parts := make([]string, 0, 3)
	for _, a := range r.Ancestors(u) {
		parts = append(parts, a.DisplayName)
	}
	return strings.Join(append(parts, u.DisplayName), ".")
}

// Text returns the full source text of u.
func (r *ParseResult) Text(u *core.SourceUnit) string {
	src, ok := r.sources[u.File]
	if !ok {
		return ""
	}
	start, end := u.Span.Start.Offset, u.Span.End.Offset
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return src[start:end]
}

// Corpus holds the phase-1 result of every file and the phase-2 merged result.
type Corpus struct {
	files  []*ParseResult
	merged *ParseResult
}

// Files returns the per-file results in input order.
func (c *Corpus) Files() []*ParseResult { return append([]*ParseResult(nil), c.files...) }

// Merged returns the corpus-wide result: all units, references resolved
// across files, and one graph.
func (c *Corpus) Merged() *ParseResult { return c.merged }

// merge runs phase 2 over the phase-1 results.
func merge(files []*ParseResult) *Corpus {
	var (
		units []*core.SourceUnit
		refs  []core.Reference
		diags []core.Diagnostic
	)
	sources := make(map[string]string, len(files))
	cancelled := false

	for _, f := range files {
		units = append(units, f.units...)
		refs = append(refs, f.extracted...)
		for _, d := range f.diags {
			// Resolution and cycle findings are recomputed for the corpus.
			if d.Kind == core.DiagUnresolvedReference || d.Kind == core.DiagCycleDetected {
				continue
			}
			diags = append(diags, d)
		}
		for name, src := range f.sources {
			sources[name] = src
		}
		cancelled = cancelled || f.cancelled
	}

	merged := newResult("", sources, nil, units, refs, diags)
	merged.cancelled = cancelled
	return &Corpus{files: files, merged: merged}
}
