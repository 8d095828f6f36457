// Package lineage finds the references made by source units and resolves them
// to declared units or synthetic leaf nodes.
//
// Extraction works per unit over the unit's own body tokens. Tokens that belong
// to a nested child unit are excluded, so a reference is attributed to exactly
// one unit. Resolution is a separate step because a reference may target a
// unit declared in another file of the corpus.
package lineage

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/leapstack-labs/plmap/pkg/token"
)

// Extract returns the references of every unit, in unit order and, within a
// unit, in source order. Each (kind, target) pair is reported once per unit.
// Tokens inside the collapsed spans (dropped duplicate declarations) are not
// attributed to any unit.
func Extract(toks []token.Token, units []*core.SourceUnit, d *dialect.Dialect, collapsed []token.Span) []core.Reference {
	if d == nil || len(units) == 0 {
		return nil
	}

	children := make(map[string][]token.Span)
	for _, u := range units {
		if u.ParentID != "" {
			children[u.ParentID] = append(children[u.ParentID], u.Span)
		}
	}

	streams := make(map[string][]int, len(units))
	locals := make(map[string]map[string]bool, len(units))
	for _, u := range units {
		excluded := append(append([]token.Span(nil), children[u.ID]...), collapsed...)
		seq := stream(toks, u.Body, excluded)
		streams[u.ID] = seq
		locals[u.ID] = collectLocals(toks, seq, u, d)
	}

	scope := newScope(units, locals)

	var refs []core.Reference
	for _, u := range units {
		e := &extractor{
			cursor:  cursor{toks: toks, seq: streams[u.ID]},
			dialect: d,
			unit:    u,
			locals:  scope.visible(u),
			seen:    make(map[string]bool),
		}
		refs = append(refs, e.extract()...)
	}
	return refs
}

// stream returns the indexes of the significant tokens of body that fall
// outside every excluded span. A -1 entry marks each excluded region.
func stream(toks []token.Token, body core.TokenRange, excluded []token.Span) []int {
	sort.Slice(excluded, func(i, j int) bool {
		return excluded[i].Start.Offset < excluded[j].Start.Offset
	})

	end := body.End
	if end > len(toks) {
		end = len(toks)
	}

	seq := make([]int, 0, body.Len())
	x := 0
	for i := body.Start; i < end; i++ {
		t := toks[i]
		if t.IsTrivia() {
			continue
		}
		off := t.Span.Start.Offset
		for x < len(excluded) && excluded[x].End.Offset <= off {
			x++
		}
		if x < len(excluded) && excluded[x].Start.Offset <= off {
			if len(seq) == 0 || seq[len(seq)-1] != -1 {
				seq = append(seq, -1)
			}
			continue
		}
		seq = append(seq, i)
	}
	return seq
}

// collectLocals returns the upper-case names a unit declares for itself:
// parameters, variables and constants, types, subtypes, cursors and loop
// records. A call-shaped use of one of these names is not a call.
func collectLocals(toks []token.Token, seq []int, u *core.SourceUnit, d *dialect.Dialect) map[string]bool {
	names := make(map[string]bool)
	for _, p := range u.Signature.Params {
		names[strings.ToUpper(p.Name)] = true
	}

	c := cursor{toks: toks, seq: seq}
	for k := range seq {
		t := c.at(k)
		next := c.at(k + 1)
		switch {
		case t.Kind == token.Identifier && c.statementStart(k) && next.IsWord():
			names[strings.ToUpper(t.Name())] = true
		case t.IsWord() && d.IsDeclarator(t.Upper()) && next.IsWord() && !t.Is("PROCEDURE", "FUNCTION"):
			names[strings.ToUpper(next.Name())] = true
		case t.Is("FOR") && next.Kind == token.Identifier && c.at(k+2).Is("IN"):
			names[strings.ToUpper(next.Name())] = true
		}
	}
	return names
}

// scope answers which local names are visible inside a unit: its own, those of
// its ancestors, and those of the package specification matching an enclosing
// package body.
type scope struct {
	byID   map[string]*core.SourceUnit
	specs  map[string]*core.SourceUnit // PACKAGE_SPEC units by file and name
	locals map[string]map[string]bool
}

func newScope(units []*core.SourceUnit, locals map[string]map[string]bool) *scope {
	s := &scope{
		byID:   make(map[string]*core.SourceUnit, len(units)),
		specs:  make(map[string]*core.SourceUnit),
		locals: locals,
	}
	for _, u := range units {
		s.byID[u.ID] = u
		if u.Kind == core.KindPackageSpec {
			s.specs[u.File+"\x00"+u.Name] = u
		}
	}
	return s
}

func (s *scope) visible(u *core.SourceUnit) map[string]bool {
	out := make(map[string]bool)
	for cur := u; cur != nil; cur = s.byID[cur.ParentID] {
		for name := range s.locals[cur.ID] {
			out[name] = true
		}
		if cur.Kind == core.KindPackageBody {
			if spec, ok := s.specs[cur.File+"\x00"+cur.Name]; ok {
				for name := range s.locals[spec.ID] {
					out[name] = true
				}
			}
		}
	}
	return out
}

// cursor reads a unit's token stream by stream position.
type cursor struct {
	toks []token.Token
	seq  []int
}

// at returns the token at stream position k, or the zero token at a gap or
// out of range.
func (c *cursor) at(k int) token.Token {
	if k < 0 || k >= len(c.seq) || c.seq[k] < 0 {
		return token.Token{}
	}
	return c.toks[c.seq[k]]
}

// statementStart reports whether position k begins a PL/SQL statement.
func (c *cursor) statementStart(k int) bool {
	if k == 0 || c.seq[k-1] < 0 {
		return true
	}
	return c.at(k-1).Is(";", "BEGIN", "THEN", "ELSE", "LOOP", "EXCEPTION", "DECLARE", ">>")
}

// readName reads a dotted name starting at k. It returns the name parts as
// written and the stream position after the name.
func (c *cursor) readName(k int) ([]string, int) {
	t := c.at(k)
	if !t.IsWord() {
		return nil, k
	}
	parts := []string{t.Name()}
	end := k + 1
	for c.at(end).Is(".") && c.at(end+1).IsWord() {
		parts = append(parts, c.at(end+1).Name())
		end += 2
	}
	return parts, end
}

// nameSpan joins the spans of the tokens from position k up to end.
func (c *cursor) nameSpan(k, end int) token.Span {
	return token.Join(c.at(k).Span, c.at(end-1).Span)
}
