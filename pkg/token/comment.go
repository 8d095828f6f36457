package token

import "strings"

// CommentKind distinguishes line vs block comments.
type CommentKind int

// Comment kinds.
const (
	LineComment  CommentKind = iota // -- comment
	BlockComment                    // /* comment */
)

// CommentKindOf returns the kind of a COMMENT token.
func CommentKindOf(t Token) CommentKind {
	if strings.HasPrefix(t.Text, "/*") {
		return BlockComment
	}
	return LineComment
}

// CommentText strips delimiters and leading decoration from a COMMENT token,
// returning the trimmed lines joined by newlines.
func CommentText(t Token) string {
	text := t.Text
	if CommentKindOf(t) == BlockComment {
		text = strings.TrimPrefix(text, "/*")
		text = strings.TrimSuffix(text, "*/")
	} else {
		text = strings.TrimPrefix(text, "--")
	}

	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		line = strings.TrimSpace(strings.TrimLeft(line, "*"))
		if line == "" && len(out) == 0 {
			continue
		}
		out = append(out, line)
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
