package core

import "github.com/leapstack-labs/plmap/pkg/token"

// RefKind classifies a reference from a unit body.
type RefKind string

// Reference kinds. The order of the constants is the sort order used for
// deterministic dependency lists.
const (
	RefCall        RefKind = "CALL"
	RefTableRead   RefKind = "TABLE_READ"
	RefTableWrite  RefKind = "TABLE_WRITE"
	RefSequenceUse RefKind = "SEQUENCE_USE"
)

// Rank returns the position of the kind in the canonical ordering.
func (k RefKind) Rank() int {
	switch k {
	case RefCall:
		return 0
	case RefTableRead:
		return 1
	case RefTableWrite:
		return 2
	case RefSequenceUse:
		return 3
	default:
		return 4
	}
}

// LeafKind returns the leaf node kind created when the reference cannot be
// matched against a declared unit.
func (k RefKind) LeafKind() NodeKind {
	switch k {
	case RefCall:
		return KindExternalCall
	case RefSequenceUse:
		return KindSequence
	default:
		return KindTable
	}
}

// Reference is a use of a named target found in a unit's body.
type Reference struct {
	SourceID   string     `json:"source_id"`
	Target     string     `json:"target"` // canonical upper-case dotted name
	Display    string     `json:"display"`
	Kind       RefKind    `json:"kind"`
	ResolvedID string     `json:"resolved_id,omitempty"`
	Span       token.Span `json:"span"`
}

// IsResolved reports whether resolution has bound the reference to a node.
func (r Reference) IsResolved() bool {
	return r.ResolvedID != ""
}
