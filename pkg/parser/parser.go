package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/leapstack-labs/plmap/pkg/token"
)

// Result is the structure recovered from one source text.
type Result struct {
	File        string
	Source      string
	Tokens      []token.Token
	Units       []*core.SourceUnit // ordered by span start
	Collapsed   []token.Span       // units dropped as duplicates or superseded declarations
	Diagnostics []core.Diagnostic
	Cancelled   bool
	Interrupted []string // ids of units cut short by cancellation
}

// Parse recovers the units of src. It checks ctx for cancellation whenever a
// unit opens or closes and between top-level statements; a cancelled parse
// returns the units built so far with a CANCELLED diagnostic.
func Parse(ctx context.Context, file, src string, d *dialect.Dialect) *Result {
	res := &Result{File: file, Source: src}

	if !utf8.ValidString(src) {
		res.Diagnostics = []core.Diagnostic{emptyInput(file, "input is not valid UTF-8")}
		return res
	}

	toks, lexDiags := Lex(src, d)
	if skipTrivia(toks, 0) >= len(toks) {
		res.Diagnostics = []core.Diagnostic{emptyInput(file, "input contains no statements")}
		return res
	}

	p := &parser{
		ctx:     ctx,
		file:    file,
		src:     src,
		toks:    toks,
		dialect: d,
		topSeen: make(map[string]*core.SourceUnit),
		removed: make(map[*core.SourceUnit]bool),
	}
	p.diags = append(p.diags, lexDiags...)
	p.run()

	units := make([]*core.SourceUnit, 0, len(p.units))
	for _, u := range p.units {
		if p.removed[u] {
			p.collapsed = append(p.collapsed, u.Span)
			continue
		}
		units = append(units, u)
	}
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].Span.Start.Offset < units[j].Span.Start.Offset
	})

	for i := range p.diags {
		p.diags[i].File = file
	}

	res.Tokens = toks
	res.Units = units
	res.Collapsed = p.collapsed
	res.Diagnostics = p.diags
	res.Cancelled = p.cancelled
	res.Interrupted = p.interrupted
	return res
}

func emptyInput(file, msg string) core.Diagnostic {
	d := core.NewDiagnostic(core.DiagEmptyInput, nil, "%s", msg)
	d.File = file
	return d
}

// parser is the explicit parsing context: token cursor, open-unit stack and
// accumulated diagnostics.
type parser struct {
	ctx     context.Context
	file    string
	src     string
	toks    []token.Token
	dialect *dialect.Dialect

	pos   int // index of the current significant token
	stack []*frame

	topSeen   map[string]*core.SourceUnit
	units     []*core.SourceUnit
	removed   map[*core.SourceUnit]bool // forward declarations superseded by their definition
	collapsed []token.Span

	diags       []core.Diagnostic
	cancelled   bool
	interrupted []string
}

func (p *parser) run() {
	p.pos = skipTrivia(p.toks, 0)
	for p.pos < len(p.toks) && !p.cancelled {
		if len(p.stack) == 0 && p.checkCancel() {
			break
		}
		p.step()
	}
	if !p.cancelled {
		p.closeAtEOF()
	}
}

func (p *parser) step() {
	if f := p.top(); f != nil && f.endSeen {
		p.closeFrame(f, f.endTok)
		if p.isStandaloneSlash(p.pos) {
			p.advance()
		}
		return
	}

	if p.isStandaloneSlash(p.pos) {
		p.strayTerminator()
		return
	}

	if p.state() == StateTopLevel {
		p.topLevel()
		return
	}
	p.inUnit(p.top())
}

// state returns the state implied by the innermost open unit.
func (p *parser) state() State {
	f := p.top()
	if f == nil {
		return StateTopLevel
	}
	return stateOf(f.unit.Kind)
}

func (p *parser) topLevel() {
	kind, n := p.classify(p.pos)
	switch {
	case kind.IsCreate(), kind == dialect.StmtProcedure, kind == dialect.StmtFunction:
		p.openUnit(kind, n, true)
	case kind == dialect.StmtDeclare, kind == dialect.StmtBegin:
		p.openAnonymous(kind)
	case kind == dialect.StmtSkipBlock:
		p.skipBlock()
	default:
		p.skipStatement()
	}
}

func (p *parser) inUnit(f *frame) {
	t := p.toks[p.pos]
	kind, n := p.classify(p.pos)

	switch {
	case kind.IsCreate():
		// CREATE nested in another unit is tolerated as a child unit.
		p.openUnit(kind, n, true)
		return
	case kind == dialect.StmtProcedure, kind == dialect.StmtFunction:
		p.openUnit(kind, n, false)
		return
	case t.Is("END"):
		p.handleEnd(f)
		return
	case t.Is("BEGIN"):
		if f.phase == phaseDecl {
			f.phase = phaseBody
			f.depth = 1
		} else {
			f.depth++
		}
	case t.Is("CASE"):
		f.caseDepth++
	}
	p.advance()
}

// handleEnd decides whether END closes a control structure, an inner block,
// or the unit itself.
func (p *parser) handleEnd(f *frame) {
	endIdx := p.pos
	next := p.nextSig(endIdx)
	nt := p.at(next)

	switch {
	case nt.Is("IF", "LOOP"):
		p.pos = p.nextSig(next)
		return
	case nt.Is("CASE"):
		if f.caseDepth > 0 {
			f.caseDepth--
		}
		p.pos = p.nextSig(next)
		return
	case f.caseDepth > 0:
		f.caseDepth--
		p.pos = next
		return
	case f.phase == phaseBody && f.depth > 1:
		f.depth--
		p.pos = next
		return
	}

	last := endIdx
	i := next
	if nt.IsWord() && !nt.Is("END") && !p.startsStatement(next) {
		if nt.Upper() != f.unit.Name {
			span := nt.Span
			p.diag(core.DiagUnmatchedEnd, &span, "END %s does not match %s %s; closing it anyway",
				nt.Name(), f.unit.Kind, f.unit.DisplayName)
		}
		last = next
		i = p.nextSig(next)
	}
	if p.at(i).Is(";") {
		last = i
		i = p.nextSig(i)
	}
	p.pos = i

	if f.created {
		f.endSeen = true
		f.endTok = last
		return
	}
	p.closeFrame(f, last)
}

// openUnit parses a unit header starting at the current token. n is the number
// of keywords that introduced it.
func (p *parser) openUnit(stmt dialect.StatementKind, n int, created bool) {
	if p.checkCancel() {
		return
	}

	start := p.pos
	kind := unitKind(stmt)
	display, i := p.readName(p.skipWords(start, n))
	first := p.toks[start]
	if display == "" {
		display = fmt.Sprintf("UNNAMED_%d_%d", first.Span.Start.Line, first.Span.Start.Column)
	}

	u := &core.SourceUnit{
		Kind:        kind,
		Name:        strings.ToUpper(display),
		DisplayName: display,
		File:        p.file,
		Span:        token.Span{Start: first.Span.Start},
		Doc:         p.docComment(start),
		HasBody:     true,
	}
	f := &frame{unit: u, start: start, created: created}

	// terminator is set when the header alone completes the unit.
	terminator := -1

	switch kind {
	case core.KindProcedure, core.KindFunction:
		sig := ExtractSignature(p.toks, i)
		if !sig.Balanced {
			span := p.toks[sig.Open].Span
			p.diag(core.DiagUnbalancedParens, &span, "parameter list of %s %s is not closed", kind, display)
		}
		u.Signature.Params = sig.Params
		u.Signature.Partial = !sig.Balanced
		i = sig.Next
		if kind == core.KindFunction {
			u.Signature.Returns, i = extractReturn(p.toks, i)
		}

		stop := p.scanTo(i, "AS", "IS", ";", "BEGIN")
		switch st := p.at(stop); {
		case st.Is(";"):
			u.HasBody = false
			u.Body = core.TokenRange{Start: stop, End: stop}
			terminator = stop
		case st.Is("BEGIN"):
			u.Body.Start = stop
			f.phase = phaseBody
			f.depth = 1
			i = p.nextSig(stop)
		case stop < len(p.toks) && !p.isStandaloneSlash(stop):
			u.Body.Start = p.nextSig(stop)
			i = u.Body.Start
		default:
			u.Body.Start = stop
			i = stop
		}

	case core.KindTrigger:
		stop := p.scanTo(i, "DECLARE", "BEGIN", ";")
		u.Body.Start = stop
		switch st := p.at(stop); {
		case st.Is("BEGIN"):
			f.phase = phaseBody
			f.depth = 1
			i = p.nextSig(stop)
		case st.Is("DECLARE"):
			i = p.nextSig(stop)
		case st.Is(";"):
			terminator = stop
		default:
			i = stop
		}

	case core.KindView:
		stop := p.scanTo(i, "AS", ";")
		if p.at(stop).Is("AS") {
			stop = p.nextSig(stop)
		}
		u.Body.Start = stop
		end := p.scanTo(stop, ";")
		if p.at(end).Is(";") {
			terminator = end
		} else {
			terminator = p.lastSigBefore(end)
		}

	default: // packages
		stop := p.scanTo(i, "AS", "IS", ";")
		if p.at(stop).Is("AS", "IS") {
			u.Body.Start = p.nextSig(stop)
			i = u.Body.Start
		} else {
			u.Body.Start = stop
			u.HasBody = false
			if p.at(stop).Is(";") {
				terminator = stop
			} else {
				i = stop
			}
		}
	}

	p.register(f)
	p.stack = append(p.stack, f)

	if terminator >= 0 {
		p.pos = p.nextSig(terminator)
		if created {
			f.endSeen = true
			f.endTok = terminator
			return
		}
		p.closeFrame(f, terminator)
		return
	}
	p.pos = i
}

// openAnonymous opens an ANON_BLOCK at a top-level DECLARE or BEGIN.
func (p *parser) openAnonymous(stmt dialect.StatementKind) {
	if p.checkCancel() {
		return
	}
	first := p.toks[p.pos]
	name := fmt.Sprintf("ANONYMOUS_BLOCK_%d_%d", first.Span.Start.Line, first.Span.Start.Column)
	u := &core.SourceUnit{
		Kind:        core.KindAnonBlock,
		Name:        name,
		DisplayName: name,
		File:        p.file,
		Span:        token.Span{Start: first.Span.Start},
		Body:        core.TokenRange{Start: p.pos},
		Doc:         p.docComment(p.pos),
		HasBody:     true,
	}
	f := &frame{unit: u, start: p.pos, created: true}
	if stmt == dialect.StmtBegin {
		f.phase = phaseBody
		f.depth = 1
	}
	p.register(f)
	p.stack = append(p.stack, f)
	p.advance()
}

// register assigns the unit's identity and applies duplicate collapsing
// within the enclosing scope.
func (p *parser) register(f *frame) {
	u := f.unit
	parent := p.top()

	// The parent id carries the parent's kind, so a spec declaration and
	// the body definition of the same routine get distinct ids.
	path := []string{p.file, string(u.Kind)}
	if parent != nil {
		path = append(path, parent.unit.ID)
	}
	path = append(path, u.Name)
	u.ID = core.StableID(path...)

	seen := p.topSeen
	if parent != nil {
		u.ParentID = parent.unit.ID
		if parent.dropped() {
			f.shadow = true
			return
		}
		if parent.seen == nil {
			parent.seen = make(map[string]*core.SourceUnit)
		}
		seen = parent.seen
	}

	key := string(u.Kind) + ":" + u.Name
	prior, ok := seen[key]
	switch {
	case !ok:
		seen[key] = u
	case !prior.HasBody && u.HasBody && !p.removed[prior]:
		// A definition supersedes its own forward declaration.
		p.removed[prior] = true
		seen[key] = u
	default:
		f.discard = true
		f.canonical = prior
	}
}

// closeFrame pops f, which must be the innermost frame, ending its span at token last.
func (p *parser) closeFrame(f *frame, last int) {
	p.stack = p.stack[:len(p.stack)-1]

	u := f.unit
	if last < f.start {
		last = f.start
	}
	u.Span.End = p.toks[last].Span.End
	u.Body.End = last + 1
	if u.Body.Start > u.Body.End {
		u.Body.Start = u.Body.End
	}
	u.ContentHash = core.ContentHash(p.src[u.Span.Start.Offset:u.Span.End.Offset])

	switch {
	case f.shadow:
		p.collapsed = append(p.collapsed, u.Span)
	case f.discard:
		p.collapsed = append(p.collapsed, u.Span)
		d := core.NewDiagnostic(core.DiagDuplicateDeclaration, &u.Span,
			"%s %s is already declared at line %d; keeping the first declaration",
			u.Kind, u.DisplayName, f.canonical.StartLine())
		d.Class = core.DuplicateRedundant
		if f.canonical.ContentHash != u.ContentHash {
			d.Class = core.DuplicateConflicting
			d.Severity = core.SeverityWarning
		}
		d.Members = []string{f.canonical.ID}
		p.diags = append(p.diags, d)
	default:
		p.units = append(p.units, u)
	}

	p.checkCancel()
}

// strayTerminator handles a standalone '/' while units are open whose END has
// not been seen: every frame up to and including the innermost one opened by a
// top-level statement is closed with UNMATCHED_END.
func (p *parser) strayTerminator() {
	slash := p.pos
	last := p.lastSigBefore(slash)
	for len(p.stack) > 0 && !p.cancelled {
		f := p.top()
		p.unterminated(f, "before '/'")
		p.closeFrame(f, last)
		if f.created {
			break
		}
	}
	if !p.cancelled {
		p.pos = p.nextSig(slash)
	}
}

func (p *parser) closeAtEOF() {
	last := p.lastSigBefore(len(p.toks))
	for len(p.stack) > 0 {
		f := p.top()
		if f.endSeen {
			p.closeFrame(f, f.endTok)
			continue
		}
		p.unterminated(f, "before end of input")
		p.closeFrame(f, last)
	}
}

func (p *parser) unterminated(f *frame, where string) {
	if f.dropped() {
		return
	}
	span := p.toks[f.start].Span
	p.diag(core.DiagUnmatchedEnd, &span, "%s %s has no matching END %s; closed automatically",
		f.unit.Kind, f.unit.DisplayName, where)
}

// checkCancel reports whether the context is done, closing all open units at
// the current position the first time it notices.
func (p *parser) checkCancel() bool {
	if p.cancelled {
		return true
	}
	if p.ctx == nil || p.ctx.Err() == nil {
		return false
	}

	p.cancelled = true
	last := p.lastSigBefore(p.pos)
	for len(p.stack) > 0 {
		f := p.top()
		if f.endSeen {
			p.closeFrame(f, f.endTok)
			continue
		}
		if !f.dropped() {
			p.interrupted = append(p.interrupted, f.unit.ID)
		}
		p.closeFrame(f, last)
	}
	p.diags = append(p.diags, core.NewDiagnostic(core.DiagCancelled, nil, "parse cancelled: %v", p.ctx.Err()))
	return true
}

// skipStatement passes over a top-level statement that does not open a unit.
func (p *parser) skipStatement() {
	i := p.pos
	for {
		i = p.nextSig(i)
		if i >= len(p.toks) || p.isStandaloneSlash(i) {
			break
		}
		if p.toks[i].Is(";") {
			i = p.nextSig(i)
			break
		}
		if p.atLineStart(i) && p.toks[i].Is("CREATE", "DECLARE", "BEGIN") {
			break
		}
	}
	p.pos = i
}

// skipBlock passes over a construct terminated by a standalone '/' (CREATE TYPE ...).
func (p *parser) skipBlock() {
	i := p.pos
	for {
		i = p.nextSig(i)
		if i >= len(p.toks) {
			break
		}
		if p.isStandaloneSlash(i) {
			i = p.nextSig(i)
			break
		}
		if p.atLineStart(i) && p.toks[i].Is("CREATE") {
			break
		}
	}
	p.pos = i
}

func (p *parser) diag(kind core.DiagKind, span *token.Span, format string, args ...any) {
	p.diags = append(p.diags, core.NewDiagnostic(kind, span, format, args...))
}

func unitKind(stmt dialect.StatementKind) core.NodeKind {
	switch stmt {
	case dialect.StmtCreatePackage:
		return core.KindPackageSpec
	case dialect.StmtCreatePackageBody:
		return core.KindPackageBody
	case dialect.StmtCreateProcedure, dialect.StmtProcedure:
		return core.KindProcedure
	case dialect.StmtCreateFunction, dialect.StmtFunction:
		return core.KindFunction
	case dialect.StmtCreateTrigger:
		return core.KindTrigger
	case dialect.StmtCreateView:
		return core.KindView
	default:
		return core.KindAnonBlock
	}
}
