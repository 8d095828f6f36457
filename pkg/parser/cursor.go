package parser

import (
	"strings"

	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/leapstack-labs/plmap/pkg/token"
)

func (p *parser) top() *frame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

// at returns the token at i, or the zero token past the end.
func (p *parser) at(i int) token.Token {
	if i < 0 || i >= len(p.toks) {
		return token.Token{}
	}
	return p.toks[i]
}

func (p *parser) advance() {
	p.pos = p.nextSig(p.pos)
}

// nextSig returns the index of the first significant token after i.
func (p *parser) nextSig(i int) int {
	return skipTrivia(p.toks, i+1)
}

// lastSigBefore returns the index of the last significant token before i, or -1.
func (p *parser) lastSigBefore(i int) int {
	j := i - 1
	for j >= 0 && p.toks[j].IsTrivia() {
		j--
	}
	return j
}

// skipWords returns the index of the significant token n tokens after i.
func (p *parser) skipWords(i, n int) int {
	for k := 0; k < n; k++ {
		i = p.nextSig(i)
	}
	return i
}

// classify looks up the keyword sequence starting at i.
func (p *parser) classify(i int) (dialect.StatementKind, int) {
	if p.dialect == nil {
		return dialect.StmtNone, 0
	}
	limit := p.dialect.MaxSequence()
	words := make([]string, 0, limit)
	for j := i; j < len(p.toks) && len(words) < limit; j = p.nextSig(j) {
		t := p.toks[j]
		if !t.IsWord() {
			break
		}
		words = append(words, t.Upper())
	}
	return p.dialect.Classify(words)
}

// startsStatement reports whether the token at i begins a unit or a block construct.
func (p *parser) startsStatement(i int) bool {
	kind, _ := p.classify(i)
	return kind.OpensUnit() || kind == dialect.StmtSkipBlock || p.at(i).Is("CREATE")
}

// readName reads a possibly qualified name at or after i and returns its last
// part and the index after it.
func (p *parser) readName(i int) (string, int) {
	j := skipTrivia(p.toks, i)
	t := p.at(j)
	if !t.IsWord() || t.Is("AS", "IS", "BEGIN", "DECLARE") {
		return "", j
	}
	name := t.Name()
	next := p.nextSig(j)
	for p.at(next).Is(".") {
		w := p.nextSig(next)
		if !p.at(w).IsWord() {
			break
		}
		name = p.toks[w].Name()
		next = p.nextSig(w)
	}
	return name, next
}

// scanTo returns the index of the first significant token at or after i that
// matches one of stops outside parentheses. A ';' always stops the scan, and so
// does a standalone '/'. Returns len(tokens) at end of input.
func (p *parser) scanTo(i int, stops ...string) int {
	depth := 0
	for j := skipTrivia(p.toks, i); j < len(p.toks); j = p.nextSig(j) {
		t := p.toks[j]
		switch {
		case p.isStandaloneSlash(j), t.Is(";"):
			return j
		case t.Is("("):
			depth++
		case t.Is(")"):
			if depth > 0 {
				depth--
			}
		case depth == 0 && t.Is(stops...):
			return j
		}
	}
	return len(p.toks)
}

// isStandaloneSlash reports whether token i is a '/' alone on its line.
func (p *parser) isStandaloneSlash(i int) bool {
	t := p.at(i)
	if t.Kind != token.Operator || t.Text != "/" {
		return false
	}
	return p.atLineStart(i) && p.atLineEnd(i)
}

func (p *parser) atLineStart(i int) bool {
	if i == 0 {
		return true
	}
	prev := p.toks[i-1]
	return prev.Kind == token.Whitespace && (prev.HasNewline() || i-1 == 0)
}

func (p *parser) atLineEnd(i int) bool {
	if i+1 >= len(p.toks) {
		return true
	}
	next := p.toks[i+1]
	return next.Kind == token.Whitespace && (next.HasNewline() || i+2 == len(p.toks))
}

// docComment collects the comment block immediately above token i. Comments
// must start their own line and be separated by at most one line break.
func (p *parser) docComment(i int) string {
	var parts []string
	for j := i - 1; j >= 0; j-- {
		t := p.toks[j]
		if t.Kind == token.Whitespace {
			if strings.Count(t.Text, "\n") > 1 {
				break
			}
			continue
		}
		if t.Kind != token.Comment || !p.commentOwnsLine(j) {
			break
		}
		parts = append(parts, token.CommentText(t))
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func (p *parser) commentOwnsLine(j int) bool {
	if j == 0 {
		return true
	}
	prev := p.toks[j-1]
	return prev.Kind == token.Comment || (prev.Kind == token.Whitespace && (prev.HasNewline() || j-1 == 0))
}
