package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/leapstack-labs/plmap/pkg/token"
)

// Lexer splits procedural SQL source into a gap-free token stream.
// Whitespace and comments are emitted as tokens.
type Lexer struct {
	input string
	pos   int // byte offset of the next unread byte
	line  int // 1-based line of pos
	col   int // 1-based column of pos

	dialect *dialect.Dialect

	tokens      []token.Token
	diagnostics []core.Diagnostic
}

// NewLexer creates a Lexer for input. The dialect decides which words are keywords.
func NewLexer(input string, d *dialect.Dialect) *Lexer {
	return &Lexer{
		input:   input,
		line:    1,
		col:     1,
		dialect: d,
	}
}

// Lex tokenizes input in one call.
func Lex(input string, d *dialect.Dialect) ([]token.Token, []core.Diagnostic) {
	return NewLexer(input, d).Tokenize()
}

// Tokenize consumes the whole input. Unterminated literals are recovered with a
// LEX_RECOVERY diagnostic; the stream always reaches the end of the input.
func (l *Lexer) Tokenize() ([]token.Token, []core.Diagnostic) {
	for l.pos < len(l.input) {
		l.next()
	}
	return l.tokens, l.diagnostics
}

func (l *Lexer) position() token.Position {
	return token.Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// advance moves forward n bytes, keeping line and column in step.
func (l *Lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.input); i++ {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// advanceTo moves forward to the given offset.
func (l *Lexer) advanceTo(offset int) {
	l.advance(offset - l.pos)
}

func (l *Lexer) emit(kind token.Kind, start token.Position) {
	l.tokens = append(l.tokens, token.Token{
		Kind: kind,
		Text: l.input[start.Offset:l.pos],
		Span: token.Span{Start: start, End: l.position()},
	})
}

func (l *Lexer) recover(start token.Position, what string) {
	span := token.Span{Start: start, End: l.position()}
	l.diagnostics = append(l.diagnostics,
		core.NewDiagnostic(core.DiagLexRecovery, &span, "unterminated %s at line %d, column %d", what, start.Line, start.Column))
}

func (l *Lexer) next() {
	start := l.position()
	ch := l.input[l.pos]

	switch {
	case isSpace(ch):
		for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
			l.advance(1)
		}
		l.emit(token.Whitespace, start)

	case ch == '-' && l.peek(1) == '-':
		l.advanceTo(l.lineEnd(l.pos))
		l.emit(token.Comment, start)

	case ch == '/' && l.peek(1) == '*':
		l.readBlockComment(start)

	case ch == '\'':
		l.readString(start, 1, '\'')

	case (ch == 'q' || ch == 'Q') && l.peek(1) == '\'' && l.peek(2) != 0:
		l.readString(start, 3, closingDelimiter(l.peek(2)))

	case (ch == 'n' || ch == 'N') && l.peek(1) == '\'':
		l.readString(start, 2, '\'')

	case ch == '"':
		l.readQuotedIdentifier(start)

	case isDigit(ch) || (ch == '.' && isDigit(l.peek(1))):
		l.readNumber()
		l.emit(token.Number, start)

	case isWordStart(l.input[l.pos:]):
		l.readWord()
		kind := token.Identifier
		if l.dialect != nil && l.dialect.IsKeyword(l.input[start.Offset:l.pos]) {
			kind = token.Keyword
		}
		l.emit(kind, start)

	default:
		l.readSymbol(start)
	}
}

// lineEnd returns the offset of the next newline at or after from (or end of input).
func (l *Lexer) lineEnd(from int) int {
	for i := from; i < len(l.input); i++ {
		if l.input[i] == '\n' || l.input[i] == '\r' {
			return i
		}
	}
	return len(l.input)
}

func (l *Lexer) readBlockComment(start token.Position) {
	for i := l.pos + 2; i+1 < len(l.input); i++ {
		if l.input[i] == '*' && l.input[i+1] == '/' {
			l.advanceTo(i + 2)
			l.emit(token.Comment, start)
			return
		}
	}
	// Unterminated: the rest of the file is the comment.
	l.advanceTo(len(l.input))
	l.emit(token.Comment, start)
	l.recover(start, "block comment")
}

// readString reads a string literal whose body starts prefix bytes after the
// current position and ends at the first unescaped delimiter followed by a quote.
// Plain strings escape a quote by doubling it. An unterminated string ends at the
// end of its first line.
func (l *Lexer) readString(start token.Position, prefix int, delim byte) {
	quoted := delim == '\''
	i := l.pos + prefix
	for i < len(l.input) {
		c := l.input[i]
		switch {
		case quoted && c == '\'' && i+1 < len(l.input) && l.input[i+1] == '\'':
			i += 2
			continue
		case quoted && c == '\'':
			l.advanceTo(i + 1)
			l.emit(token.StringLiteral, start)
			return
		case !quoted && c == delim && i+1 < len(l.input) && l.input[i+1] == '\'':
			l.advanceTo(i + 2)
			l.emit(token.StringLiteral, start)
			return
		}
		i++
	}
	l.advanceTo(l.lineEnd(l.pos))
	l.emit(token.StringLiteral, start)
	l.recover(start, "string literal")
}

func (l *Lexer) readQuotedIdentifier(start token.Position) {
	end := l.lineEnd(l.pos)
	for i := l.pos + 1; i < end; i++ {
		if l.input[i] != '"' {
			continue
		}
		if i+1 < end && l.input[i+1] == '"' {
			i++
			continue
		}
		l.advanceTo(i + 1)
		l.emit(token.Identifier, start)
		return
	}
	l.advanceTo(end)
	l.emit(token.Identifier, start)
	l.recover(start, "quoted identifier")
}

func (l *Lexer) readNumber() {
	for isDigit(l.peek(0)) {
		l.advance(1)
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.advance(1)
		for isDigit(l.peek(0)) {
			l.advance(1)
		}
	}
	if c := l.peek(0); c == 'e' || c == 'E' {
		n := 1
		if s := l.peek(1); s == '+' || s == '-' {
			n = 2
		}
		if isDigit(l.peek(n)) {
			l.advance(n)
			for isDigit(l.peek(0)) {
				l.advance(1)
			}
		}
	}
	// Float and double suffixes.
	if c := l.peek(0); (c == 'f' || c == 'F' || c == 'd' || c == 'D') && !isWordPart(l.peek(1)) {
		l.advance(1)
	}
}

func (l *Lexer) readWord() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if r == '_' || r == '$' || r == '#' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			l.advance(size)
			continue
		}
		break
	}
}

var twoCharOperators = map[string]bool{
	":=": true, "=>": true, "||": true, "<=": true, ">=": true, "<>": true,
	"!=": true, "^=": true, "~=": true, "..": true, "**": true, "<<": true, ">>": true,
}

func (l *Lexer) readSymbol(start token.Position) {
	if l.pos+2 <= len(l.input) && twoCharOperators[l.input[l.pos:l.pos+2]] {
		l.advance(2)
		l.emit(token.Operator, start)
		return
	}

	ch := l.input[l.pos]
	switch ch {
	case '(', ')', ',', ';', '.', '[', ']', '{', '}':
		l.advance(1)
		l.emit(token.Punctuation, start)
	case '+', '-', '*', '/', '%', '=', '<', '>', '!', '^', '~', '@', ':', '&', '?', '|':
		l.advance(1)
		l.emit(token.Operator, start)
	default:
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.advance(size)
		l.emit(token.Punctuation, start)
	}
}

// closingDelimiter returns the closing delimiter of a q'...' literal.
func closingDelimiter(open byte) byte {
	switch open {
	case '[':
		return ']'
	case '{':
		return '}'
	case '(':
		return ')'
	case '<':
		return '>'
	default:
		return open
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isWordPart(ch byte) bool {
	return ch == '_' || ch == '$' || ch == '#' || isDigit(ch) ||
		('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isWordStart(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return r == '_' || unicode.IsLetter(r)
}
