package parser

import (
	"strings"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/token"
)

// returnModifiers end a function's RETURN clause.
var returnModifiers = []string{
	"AS", "IS", "DETERMINISTIC", "PIPELINED", "PARALLEL_ENABLE",
	"RESULT_CACHE", "AUTHID", "AGGREGATE", "ACCESSIBLE", "SQL_MACRO",
}

// SignatureResult is the outcome of scanning a parameter list.
type SignatureResult struct {
	Params   []core.Parameter
	Next     int  // index of the first token after the list
	Balanced bool // false when the list was cut short by unbalanced parentheses
	Open     int  // index of the opening parenthesis, -1 when there is no list
}

// ExtractSignature parses the parenthesized parameter list whose opening
// parenthesis is the first significant token at or after index i.
// Commas nested in parentheses or inside literals do not split parameters.
// When the list is not closed before ';', BEGIN, end of input, or a top-level
// IS/AS, the parameters read so far are returned with Balanced set to false.
func ExtractSignature(toks []token.Token, i int) SignatureResult {
	open := skipTrivia(toks, i)
	if open >= len(toks) || !toks[open].Is("(") {
		return SignatureResult{Next: i, Balanced: true, Open: -1}
	}

	res := SignatureResult{Open: open}
	depth := 1
	segStart := open + 1
	j := open + 1
	for ; j < len(toks); j++ {
		t := toks[j]
		switch {
		case t.Is("("):
			depth++
		case t.Is(")"):
			depth--
			if depth == 0 {
				res.addParam(toks[segStart:j])
				res.Next = j + 1
				res.Balanced = true
				return res
			}
		case t.Is(",") && depth == 1:
			res.addParam(toks[segStart:j])
			segStart = j + 1
		case t.Is(";") || t.Is("BEGIN") || (depth == 1 && t.Is("IS", "AS")):
			res.addParam(toks[segStart:j])
			res.Next = j
			return res
		}
	}
	res.addParam(toks[segStart:j])
	res.Next = j
	return res
}

func (r *SignatureResult) addParam(seg []token.Token) {
	if p, ok := parseParameter(seg); ok {
		r.Params = append(r.Params, p)
	}
}

// parseParameter parses "name [IN|OUT|IN OUT] [NOCOPY] type [{DEFAULT|:=} expr]".
func parseParameter(seg []token.Token) (core.Parameter, bool) {
	idx := significant(seg)
	if len(idx) == 0 {
		return core.Parameter{}, false
	}

	p := core.Parameter{Name: seg[idx[0]].Name(), Direction: core.DirIn}
	k := 1
	if k < len(idx) && seg[idx[k]].Is("IN") {
		k++
		if k < len(idx) && seg[idx[k]].Is("OUT") {
			p.Direction = core.DirInOut
			k++
		}
	} else if k < len(idx) && seg[idx[k]].Is("OUT") {
		p.Direction = core.DirOut
		k++
	}
	if k < len(idx) && seg[idx[k]].Is("NOCOPY") {
		k++
	}

	typeEnd := len(idx)
	depth := 0
	for m := k; m < len(idx); m++ {
		t := seg[idx[m]]
		if t.Is("(") {
			depth++
		} else if t.Is(")") {
			depth--
		} else if depth == 0 && (t.Is("DEFAULT") || t.Is(":=")) {
			typeEnd = m
			break
		}
	}

	if k < typeEnd {
		p.Type = renderTokens(seg[idx[k] : idx[typeEnd-1]+1])
	}
	if typeEnd+1 < len(idx) {
		p.Default = renderTokens(seg[idx[typeEnd+1] : idx[len(idx)-1]+1])
	}
	return p, true
}

// extractReturn reads the RETURN clause of a function starting at index i.
// It returns the raw return type and the index after it.
func extractReturn(toks []token.Token, i int) (string, int) {
	j := skipTrivia(toks, i)
	if j >= len(toks) || !toks[j].Is("RETURN") {
		return "", i
	}
	start := skipTrivia(toks, j+1)
	end := start
	last := -1
	for end < len(toks) {
		t := toks[end]
		if t.Is(";") || t.Is(returnModifiers...) || t.Is("BEGIN") {
			break
		}
		if !t.IsTrivia() {
			last = end
		}
		end++
	}
	if last < 0 {
		return "", end
	}
	return renderTokens(toks[start : last+1]), end
}

// renderTokens joins token text with comments dropped and each trivia run
// replaced by a single space.
func renderTokens(toks []token.Token) string {
	var b strings.Builder
	pending := false
	for _, t := range toks {
		if t.IsTrivia() {
			pending = b.Len() > 0
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

func significant(toks []token.Token) []int {
	idx := make([]int, 0, len(toks))
	for i, t := range toks {
		if !t.IsTrivia() {
			idx = append(idx, i)
		}
	}
	return idx
}

func skipTrivia(toks []token.Token, i int) int {
	for i < len(toks) && toks[i].IsTrivia() {
		i++
	}
	return i
}
