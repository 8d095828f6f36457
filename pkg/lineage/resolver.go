package lineage

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/plmap/pkg/core"
)

// Leaf is a synthetic graph node for a referenced entity that is not a
// declared unit: a table, a sequence, or an external call target.
type Leaf struct {
	ID   string        `json:"id"`
	Kind core.NodeKind `json:"kind"`
	Name string        `json:"name"`
}

// LeafID returns the node id of the leaf of the given kind and name. Leaf ids
// depend only on kind and name so leaves from different files merge.
func LeafID(kind core.NodeKind, name string) string {
	switch kind {
	case core.KindTable:
		return "table:" + name
	case core.KindSequence:
		return "sequence:" + name
	default:
		return "external:" + name
	}
}

// Resolution is the outcome of resolving a set of references.
type Resolution struct {
	References  []core.Reference
	Leaves      []Leaf // sorted by id
	Diagnostics []core.Diagnostic
}

// Resolve binds refs against units. The input references are not modified.
func Resolve(units []*core.SourceUnit, refs []core.Reference) Resolution {
	r := NewResolver(units)
	out := r.Resolve(refs)
	return Resolution{
		References:  out,
		Leaves:      r.Leaves(),
		Diagnostics: r.Diagnostics(),
	}
}

// Resolver matches reference targets case-insensitively against a fixed
// namespace of declared units and creates leaves for everything else.
type Resolver struct {
	byID      map[string]*core.SourceUnit
	callables map[string][]*core.SourceUnit // by upper-case name
	views     map[string]*core.SourceUnit

	leaves map[string]Leaf
	diags  []core.Diagnostic
}

// NewResolver creates a resolver over the declared units.
func NewResolver(units []*core.SourceUnit) *Resolver {
	r := &Resolver{
		byID:      make(map[string]*core.SourceUnit, len(units)),
		callables: make(map[string][]*core.SourceUnit),
		views:     make(map[string]*core.SourceUnit),
		leaves:    make(map[string]Leaf),
	}
	for _, u := range units {
		r.byID[u.ID] = u
	}
	for _, u := range units {
		switch {
		case u.Kind.IsCallable():
			r.callables[u.Name] = append(r.callables[u.Name], u)
		case u.Kind == core.KindView:
			if prior, ok := r.views[u.Name]; !ok || u.ID < prior.ID {
				r.views[u.Name] = u
			}
		}
	}
	return r
}

// Resolve returns copies of refs with ResolvedID set. Every reference resolves:
// to a declared unit when one matches, otherwise to a leaf.
func (r *Resolver) Resolve(refs []core.Reference) []core.Reference {
	out := make([]core.Reference, len(refs))
	for i, ref := range refs {
		ref.ResolvedID = ""
		switch ref.Kind {
		case core.RefCall:
			if u := r.resolveCall(ref); u != nil {
				ref.ResolvedID = u.ID
			}
		case core.RefTableRead, core.RefTableWrite:
			if v, ok := r.views[lastPart(ref.Target)]; ok {
				ref.ResolvedID = v.ID
			}
		}
		if ref.ResolvedID == "" {
			ref.ResolvedID = r.leaf(ref)
		}
		out[i] = ref
	}
	return out
}

// Leaves returns the leaves created so far, sorted by id.
func (r *Resolver) Leaves() []Leaf {
	out := make([]Leaf, 0, len(r.leaves))
	for _, l := range r.leaves {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Diagnostics returns the UNRESOLVED_REFERENCE diagnostics, one per external
// call target.
func (r *Resolver) Diagnostics() []core.Diagnostic {
	return r.diags
}

func (r *Resolver) leaf(ref core.Reference) string {
	kind := ref.Kind.LeafKind()
	id := LeafID(kind, ref.Target)
	if _, ok := r.leaves[id]; ok {
		return id
	}
	r.leaves[id] = Leaf{ID: id, Kind: kind, Name: ref.Target}

	if kind == core.KindExternalCall {
		span := ref.Span
		d := core.NewDiagnostic(core.DiagUnresolvedReference, &span,
			"call to %s does not match any declared procedure or function", ref.Display)
		if src, ok := r.byID[ref.SourceID]; ok {
			d.File = src.File
		}
		d.Members = []string{ref.SourceID}
		r.diags = append(r.diags, d)
	}
	return id
}

// resolveCall picks the callable unit a CALL binds to. An unqualified name
// prefers units in the caller's lexical scope, then the caller's package, then
// standalone units. A qualified name must match the candidate's package, or a
// standalone unit for a schema-qualified call.
func (r *Resolver) resolveCall(ref core.Reference) *core.SourceUnit {
	parts := strings.Split(ref.Target, ".")
	candidates := r.callables[parts[len(parts)-1]]
	if len(candidates) == 0 {
		return nil
	}

	src := r.byID[ref.SourceID]
	qualifier := ""
	if len(parts) > 1 {
		qualifier = parts[len(parts)-2]
	}

	var best *core.SourceUnit
	bestRank := -1
	for _, c := range candidates {
		rank := r.rank(src, c, qualifier)
		if rank < 0 {
			continue
		}
		if best == nil || rank < bestRank || (rank == bestRank && better(c, best)) {
			best, bestRank = c, rank
		}
	}
	return best
}

func (r *Resolver) rank(src, c *core.SourceUnit, qualifier string) int {
	pkg := r.packageOf(c)
	if qualifier != "" {
		switch {
		case pkg != nil && pkg.Name == qualifier:
			return 0
		case c.IsTopLevel():
			return 1
		}
		return -1
	}

	switch {
	case src != nil && r.encloses(c.ParentID, src):
		return 0
	case src != nil && pkg != nil && r.packageOf(src) != nil && r.packageOf(src).Name == pkg.Name:
		return 1
	case c.IsTopLevel():
		return 2
	}
	return 3
}

// encloses reports whether the unit with id is u or one of its ancestors.
func (r *Resolver) encloses(id string, u *core.SourceUnit) bool {
	if id == "" {
		return false
	}
	for cur := u; cur != nil; cur = r.byID[cur.ParentID] {
		if cur.ID == id {
			return true
		}
	}
	return false
}

func (r *Resolver) packageOf(u *core.SourceUnit) *core.SourceUnit {
	for cur := r.byID[u.ParentID]; cur != nil; cur = r.byID[cur.ParentID] {
		if cur.Kind.IsPackage() {
			return cur
		}
	}
	return nil
}

// better orders equally ranked candidates: definitions before declarations,
// then by id.
func better(a, b *core.SourceUnit) bool {
	if a.HasBody != b.HasBody {
		return a.HasBody
	}
	return a.ID < b.ID
}

func lastPart(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
