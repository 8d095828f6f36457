package lineage

import (
	"strings"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/leapstack-labs/plmap/pkg/token"
)

// nonTargets are words that can follow a table keyword without naming a table.
var nonTargets = []string{"SELECT", "WITH", "SET", "VALUES", "WHERE", "TABLE", "LATERAL", "ONLY", "ALL"}

// extractor scans one unit's token stream.
type extractor struct {
	cursor

	dialect *dialect.Dialect
	unit    *core.SourceUnit
	locals  map[string]bool

	parens []bool // one entry per open parenthesis: true when it encloses call arguments
	seen   map[string]bool
	refs   []core.Reference
}

func (e *extractor) extract() []core.Reference {
	for k := 0; k < len(e.seq); {
		k = e.step(k)
	}
	return e.refs
}

// step classifies the token at stream position k and returns the position to
// continue from.
func (e *extractor) step(k int) int {
	if e.seq[k] < 0 {
		e.parens = e.parens[:0]
		return k + 1
	}

	t := e.at(k)
	switch {
	case t.Is("("):
		e.parens = append(e.parens, e.at(k-1).Kind == token.Identifier && !e.at(k+1).Is("SELECT", "WITH"))
		return k + 1
	case t.Is(")"):
		if len(e.parens) > 0 {
			e.parens = e.parens[:len(e.parens)-1]
		}
		return k + 1
	case t.Is(";"):
		e.parens = e.parens[:0]
		return k + 1
	case !t.IsWord():
		return k + 1
	case e.at(k-1).Is(".", ":", "%"):
		// Member access, bind variable or attribute.
		return k + 1
	}

	if t.Kind == token.Keyword {
		kind, n := e.classify(k)
		switch kind {
		case dialect.StmtIgnore:
			return k + n
		case dialect.StmtTableRead:
			if t.Is("FROM") && (e.inCallArgs() || e.at(k-1).Is("DISTINCT")) {
				return k + 1
			}
			return e.tables(k+n, core.RefTableRead, t.Is("FROM"))
		case dialect.StmtTableWrite:
			return e.tables(k+n, core.RefTableWrite, false)
		case dialect.StmtMergeWrite:
			return e.merge(k + n)
		}
		return k + 1
	}

	if t.Kind == token.Identifier {
		return e.name(k)
	}
	return k + 1
}

func (e *extractor) classify(k int) (dialect.StatementKind, int) {
	limit := e.dialect.MaxSequence()
	words := make([]string, 0, limit)
	for j := k; j < len(e.seq) && len(words) < limit; j++ {
		t := e.at(j)
		if !t.IsWord() {
			break
		}
		words = append(words, t.Upper())
	}
	return e.dialect.Classify(words)
}

func (e *extractor) inCallArgs() bool {
	return len(e.parens) > 0 && e.parens[len(e.parens)-1]
}

// name handles an identifier: a sequence pseudo-column use, a call with
// arguments, a parameterless call statement, or nothing.
func (e *extractor) name(k int) int {
	parts, end := e.readName(k)
	last := strings.ToUpper(parts[len(parts)-1])

	if len(parts) > 1 && e.dialect.IsSequenceColumn(last) {
		e.add(core.RefSequenceUse, parts[:len(parts)-1], e.nameSpan(k, end-2))
		return end
	}

	next := e.at(end)
	if (next.Is("(") || (next.Is(";") && e.statementStart(k))) && e.isCall(k, parts) {
		e.add(core.RefCall, parts, e.nameSpan(k, end))
	}
	return end
}

func (e *extractor) isCall(k int, parts []string) bool {
	if prev := e.at(k - 1); prev.IsWord() && e.dialect.IsDeclarator(prev.Upper()) {
		return false
	}
	full := strings.ToUpper(strings.Join(parts, "."))
	if e.dialect.IsBuiltin(full) || e.dialect.IsKeyword(full) {
		return false
	}
	return !e.locals[strings.ToUpper(parts[0])]
}

// tables reads the table names after a read or write keyword. When list is
// set, comma separated names are read too (FROM a, b).
func (e *extractor) tables(k int, kind core.RefKind, list bool) int {
	for {
		t := e.at(k)
		if !t.IsWord() || t.Is(nonTargets...) {
			return k
		}
		parts, end := e.readName(k)
		if len(parts) > 1 || !e.dialect.IsPseudoTable(strings.ToUpper(parts[0])) {
			e.add(kind, parts, e.nameSpan(k, end))
		}
		k = e.skipAlias(end)
		if !list || !e.at(k).Is(",") {
			return k
		}
		k++
	}
}

func (e *extractor) skipAlias(k int) int {
	t := e.at(k)
	switch {
	case t.Is("AS") && e.at(k+1).IsWord():
		return k + 2
	case t.Kind == token.Identifier:
		return k + 1
	}
	return k
}

// merge records the target of MERGE INTO and the table named by its USING
// clause. A USING subquery is left to the normal scan.
func (e *extractor) merge(k int) int {
	next := e.tables(k, core.RefTableWrite, false)
	for j := next; j < len(e.seq) && e.seq[j] >= 0; j++ {
		t := e.at(j)
		if t.Is(";") {
			break
		}
		if t.Is("USING") {
			e.tables(j+1, core.RefTableRead, false)
			break
		}
	}
	return next
}

func (e *extractor) add(kind core.RefKind, parts []string, span token.Span) {
	target := strings.ToUpper(strings.Join(parts, "."))
	key := string(kind) + "\x00" + target
	if e.seen[key] {
		return
	}
	e.seen[key] = true
	e.refs = append(e.refs, core.Reference{
		SourceID: e.unit.ID,
		Target:   target,
		Display:  strings.Join(parts, "."),
		Kind:     kind,
		Span:     span,
	})
}
