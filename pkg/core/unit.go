package core

import "github.com/leapstack-labs/plmap/pkg/token"

// NodeKind identifies what a source unit or graph node represents.
type NodeKind string

// Unit kinds produced by the structural parser.
const (
	KindPackageSpec NodeKind = "PACKAGE_SPEC"
	KindPackageBody NodeKind = "PACKAGE_BODY"
	KindProcedure   NodeKind = "PROCEDURE"
	KindFunction    NodeKind = "FUNCTION"
	KindTrigger     NodeKind = "TRIGGER"
	KindView        NodeKind = "VIEW"
	KindAnonBlock   NodeKind = "ANON_BLOCK"
)

// Leaf kinds created by resolution for targets not declared in the corpus.
const (
	KindTable        NodeKind = "TABLE"
	KindSequence     NodeKind = "SEQUENCE"
	KindExternalCall NodeKind = "EXTERNAL_CALL"
)

// IsUnit reports whether the kind is produced by parsing source.
func (k NodeKind) IsUnit() bool {
	switch k {
	case KindPackageSpec, KindPackageBody, KindProcedure, KindFunction,
		KindTrigger, KindView, KindAnonBlock:
		return true
	}
	return false
}

// IsLeaf reports whether the kind is a synthetic leaf.
func (k NodeKind) IsLeaf() bool {
	return k == KindTable || k == KindSequence || k == KindExternalCall
}

// IsCallable reports whether units of this kind can be the target of a CALL.
func (k NodeKind) IsCallable() bool {
	return k == KindProcedure || k == KindFunction
}

// IsPackage reports whether the kind is a package spec or body.
func (k NodeKind) IsPackage() bool {
	return k == KindPackageSpec || k == KindPackageBody
}

// TokenRange is a half-open range of token indexes [Start, End).
type TokenRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of tokens in the range.
func (r TokenRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains reports whether index i lies in the range.
func (r TokenRange) Contains(i int) bool {
	return i >= r.Start && i < r.End
}

// SourceUnit is a named, delimited code construct recovered from source.
type SourceUnit struct {
	ID          string     `json:"id"`
	Kind        NodeKind   `json:"kind"`
	Name        string     `json:"name"`         // canonical upper-case name
	DisplayName string     `json:"display_name"` // name as written
	ParentID    string     `json:"parent_id,omitempty"`
	File        string     `json:"file,omitempty"`
	Signature   Signature  `json:"signature"`
	Span        token.Span `json:"span"`
	Body        TokenRange `json:"body"` // tokens after the header up to the unit end
	Doc         string     `json:"doc,omitempty"`
	HasBody     bool       `json:"has_body"`
	ContentHash string     `json:"content_hash"`
}

// IsTopLevel reports whether the unit has no parent.
func (u *SourceUnit) IsTopLevel() bool {
	return u.ParentID == ""
}

// StartLine returns the 1-based line the unit starts on.
func (u *SourceUnit) StartLine() int {
	return u.Span.Start.Line
}

// EndLine returns the 1-based line the unit ends on.
func (u *SourceUnit) EndLine() int {
	return u.Span.End.Line
}

// Direction is the mode of a formal parameter.
type Direction string

// Parameter directions.
const (
	DirIn    Direction = "IN"
	DirOut   Direction = "OUT"
	DirInOut Direction = "IN OUT"
)

// Parameter is one formal parameter of a procedure or function.
type Parameter struct {
	Name      string    `json:"name"`
	Direction Direction `json:"direction"`
	Type      string    `json:"type"`              // raw type expression, whitespace collapsed
	Default   string    `json:"default,omitempty"` // raw default expression
}

// Signature is the parameter list and, for functions, the return type.
type Signature struct {
	Params  []Parameter `json:"params,omitempty"`
	Returns string      `json:"returns,omitempty"`
	Partial bool        `json:"partial,omitempty"` // parameter list was cut short by unbalanced parens
}

// String renders the signature as "(a IN NUMBER, b OUT VARCHAR2) RETURN DATE".
func (s Signature) String() string {
	var b []byte
	b = append(b, '(')
	for i, p := range s.Params {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, p.Name...)
		b = append(b, ' ')
		b = append(b, p.Direction...)
		if p.Type != "" {
			b = append(b, ' ')
			b = append(b, p.Type...)
		}
		if p.Default != "" {
			b = append(b, " DEFAULT "...)
			b = append(b, p.Default...)
		}
	}
	b = append(b, ')')
	if s.Returns != "" {
		b = append(b, " RETURN "...)
		b = append(b, s.Returns...)
	}
	return string(b)
}
