package core

import (
	"fmt"

	"github.com/leapstack-labs/plmap/pkg/token"
)

// DiagKind is the taxonomy of parse diagnostics.
type DiagKind string

// Diagnostic kinds.
const (
	DiagLexRecovery          DiagKind = "LEX_RECOVERY"
	DiagUnbalancedParens     DiagKind = "UNBALANCED_PARENS"
	DiagUnmatchedEnd         DiagKind = "UNMATCHED_END"
	DiagDuplicateDeclaration DiagKind = "DUPLICATE_DECLARATION"
	DiagUnresolvedReference  DiagKind = "UNRESOLVED_REFERENCE"
	DiagCycleDetected        DiagKind = "CYCLE_DETECTED"
	DiagCancelled            DiagKind = "CANCELLED"
	DiagEmptyInput           DiagKind = "EMPTY_INPUT"
)

// DiagKinds lists every diagnostic kind in documentation order.
func DiagKinds() []DiagKind {
	return []DiagKind{
		DiagLexRecovery, DiagUnbalancedParens, DiagUnmatchedEnd, DiagDuplicateDeclaration,
		DiagUnresolvedReference, DiagCycleDetected, DiagCancelled, DiagEmptyInput,
	}
}

// DefaultSeverity returns the severity a diagnostic of this kind carries
// unless the producer overrides it.
func (k DiagKind) DefaultSeverity() Severity {
	switch k {
	case DiagEmptyInput:
		return SeverityError
	case DiagDuplicateDeclaration, DiagUnresolvedReference, DiagCycleDetected:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// DuplicateClass qualifies a DUPLICATE_DECLARATION.
type DuplicateClass string

// Duplicate classes.
const (
	DuplicateRedundant   DuplicateClass = "redundant"   // same normalised content as the first
	DuplicateConflicting DuplicateClass = "conflicting" // content differs from the first
)

// Diagnostic is a non-fatal finding attached to a parse result.
type Diagnostic struct {
	Kind     DiagKind       `json:"kind"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	File     string         `json:"file,omitempty"`
	Span     *token.Span    `json:"span,omitempty"`
	Class    DuplicateClass `json:"class,omitempty"`
	Members  []string       `json:"members,omitempty"` // unit ids named by the finding
}

// NewDiagnostic creates a diagnostic with the kind's default severity.
func NewDiagnostic(kind DiagKind, span *token.Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: kind.DefaultSeverity(),
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	}
}

// Line returns the 1-based start line of the diagnostic, or 0 without a span.
func (d Diagnostic) Line() int {
	if d.Span == nil {
		return 0
	}
	return d.Span.Start.Line
}

func (d Diagnostic) String() string {
	loc := d.File
	if line := d.Line(); line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, line)
	}
	if loc != "" {
		return fmt.Sprintf("%s: %s %s: %s", loc, d.Severity, d.Kind, d.Message)
	}
	return fmt.Sprintf("%s %s: %s", d.Severity, d.Kind, d.Message)
}

// CountKind returns how many diagnostics have the given kind.
func CountKind(diags []Diagnostic, kind DiagKind) int {
	n := 0
	for _, d := range diags {
		if d.Kind == kind {
			n++
		}
	}
	return n
}
