// Package token defines the lexical vocabulary shared by the procedural SQL lexer,
// the structural parser and the reference extractor.
//
// Tokens cover the source text without gaps: whitespace and comments are tokens too,
// so that spans and doc comments can be recovered from the stream alone.
package token

import (
	"fmt"
	"strings"
)

// Kind classifies a token.
type Kind int

// Token kinds.
const (
	Whitespace Kind = iota
	Comment
	Keyword
	Identifier
	StringLiteral
	Number
	Operator
	Punctuation
)

var kindNames = map[Kind]string{
	Whitespace:    "WHITESPACE",
	Comment:       "COMMENT",
	Keyword:       "KEYWORD",
	Identifier:    "IDENTIFIER",
	StringLiteral: "STRING_LITERAL",
	Number:        "NUMBER",
	Operator:      "OPERATOR",
	Punctuation:   "PUNCTUATION",
}

// String returns the upper-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// Token is a single lexeme. Tokens are immutable once produced by the lexer.
type Token struct {
	Kind Kind
	Text string // raw source text, including quotes and comment delimiters
	Span Span
}

// IsTrivia reports whether the token carries no syntax (whitespace or comment).
func (t Token) IsTrivia() bool {
	return t.Kind == Whitespace || t.Kind == Comment
}

// IsWord reports whether the token is a keyword or an identifier.
func (t Token) IsWord() bool {
	return t.Kind == Keyword || t.Kind == Identifier
}

// Is reports whether the token is a word equal to one of the given upper-case words,
// or punctuation/operator text equal to one of them.
func (t Token) Is(words ...string) bool {
	switch t.Kind {
	case Keyword, Identifier:
		for _, w := range words {
			if strings.EqualFold(t.Text, w) {
				return true
			}
		}
	case Punctuation, Operator:
		for _, w := range words {
			if t.Text == w {
				return true
			}
		}
	}
	return false
}

// Upper returns the canonical form of a word: quotes stripped, upper-cased.
func (t Token) Upper() string {
	return strings.ToUpper(t.Name())
}

// Name returns the display form of an identifier with surrounding double quotes removed.
func (t Token) Name() string {
	if t.Kind == Identifier && len(t.Text) >= 2 && t.Text[0] == '"' && t.Text[len(t.Text)-1] == '"' {
		return strings.ReplaceAll(t.Text[1:len(t.Text)-1], `""`, `"`)
	}
	return t.Text
}

// HasNewline reports whether a whitespace token spans a line break.
func (t Token) HasNewline() bool {
	return t.Kind == Whitespace && strings.ContainsAny(t.Text, "\n\r")
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Span.Start.Offset)
}
