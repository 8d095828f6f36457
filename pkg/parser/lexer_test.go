package parser

import (
	"strings"
	"testing"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialects/plsql"
	"github.com/leapstack-labs/plmap/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func significantKinds(toks []token.Token) []token.Kind {
	var kinds []token.Kind
	for _, t := range toks {
		if !t.IsTrivia() {
			kinds = append(kinds, t.Kind)
		}
	}
	return kinds
}

func TestLexCoversInputWithoutGaps(t *testing.T) {
	inputs := []string{
		"SELECT x FROM t;",
		"-- header\n/* block\n comment */\nBEGIN\n  v := 'it''s';\n  w := q'[a 'quoted' text]';\nEND;\n/\n",
		"x := 'unterminated\ny := 1;",
		"/* never closed",
		"v_name := \"Mixed Case\".col || N'national';",
		"1.5e-3 .25 10d 42",
		"  \t\r\n",
		"résumé := 'ünïcode';",
	}

	for _, in := range inputs {
		toks, _ := Lex(in, plsql.PLSQL)
		var b strings.Builder
		prevEnd := 0
		for _, tok := range toks {
			assert.Equal(t, prevEnd, tok.Span.Start.Offset, "gap before %v", tok)
			prevEnd = tok.Span.End.Offset
			b.WriteString(tok.Text)
		}
		assert.Equal(t, in, b.String())
	}
}

func TestLexKinds(t *testing.T) {
	toks, diags := Lex("SELECT COUNT(*) INTO v_count FROM table1;", plsql.PLSQL)
	require.Empty(t, diags)

	assert.Equal(t, []token.Kind{
		token.Keyword,     // SELECT
		token.Identifier,  // COUNT
		token.Punctuation, // (
		token.Operator,    // *
		token.Punctuation, // )
		token.Keyword,     // INTO
		token.Identifier,  // v_count
		token.Keyword,     // FROM
		token.Identifier,  // table1
		token.Punctuation, // ;
	}, significantKinds(toks))
}

func TestLexOperators(t *testing.T) {
	toks, _ := Lex("a := b => c || d <> e .. f", plsql.PLSQL)
	var ops []string
	for _, tok := range toks {
		if tok.Kind == token.Operator {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{":=", "=>", "||", "<>", ".."}, ops)
}

func TestLexStrings(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"doubled quote", "'it''s'", "'it''s'"},
		{"q quote brackets", "q'[it's]'", "q'[it's]'"},
		{"q quote bang", "Q'!a'b!'", "Q'!a'b!'"},
		{"national", "N'abc'", "N'abc'"},
		{"multi line", "'line1\nline2'", "'line1\nline2'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks, diags := Lex(tt.in, plsql.PLSQL)
			require.Empty(t, diags)
			require.Len(t, toks, 1)
			assert.Equal(t, token.StringLiteral, toks[0].Kind)
			assert.Equal(t, tt.want, toks[0].Text)
		})
	}
}

func TestLexRecoversUnterminatedString(t *testing.T) {
	toks, diags := Lex("x := 'abc\ny := 1;", plsql.PLSQL)

	require.Len(t, diags, 1)
	assert.Equal(t, core.DiagLexRecovery, diags[0].Kind)
	assert.Equal(t, 1, diags[0].Line())

	var str token.Token
	var sawY bool
	for _, tok := range toks {
		if tok.Kind == token.StringLiteral {
			str = tok
		}
		if tok.Is("y") {
			sawY = true
			assert.Equal(t, 2, tok.Span.Start.Line)
		}
	}
	assert.Equal(t, "'abc", str.Text, "the literal ends at the end of its line")
	assert.True(t, sawY, "lexing continues on the next line")
}

func TestLexRecoversUnterminatedComment(t *testing.T) {
	toks, diags := Lex("BEGIN /* open\nNULL;", plsql.PLSQL)

	require.Len(t, diags, 1)
	assert.Equal(t, core.DiagLexRecovery, diags[0].Kind)
	last := toks[len(toks)-1]
	assert.Equal(t, token.Comment, last.Kind)
	assert.Equal(t, "/* open\nNULL;", last.Text)
}

func TestLexRecoversUnterminatedQuotedIdentifier(t *testing.T) {
	toks, diags := Lex("SELECT \"open\nFROM t;", plsql.PLSQL)

	require.Len(t, diags, 1)
	assert.Equal(t, core.DiagLexRecovery, diags[0].Kind)
	assert.Equal(t, []token.Kind{
		token.Keyword, token.Identifier, token.Keyword, token.Identifier, token.Punctuation,
	}, significantKinds(toks))
}

func TestLexPositions(t *testing.T) {
	toks, _ := Lex("BEGIN\n  NULL;\nEND;", plsql.PLSQL)

	var null token.Token
	for _, tok := range toks {
		if tok.Is("NULL") {
			null = tok
		}
	}
	assert.Equal(t, token.Position{Line: 2, Column: 3, Offset: 8}, null.Span.Start)
	assert.Equal(t, token.Position{Line: 2, Column: 7, Offset: 12}, null.Span.End)
}

func TestLexWithoutDialect(t *testing.T) {
	toks, _ := Lex("BEGIN NULL; END;", nil)
	for _, tok := range toks {
		assert.NotEqual(t, token.Keyword, tok.Kind, "without a dialect every word is an identifier")
	}
}
