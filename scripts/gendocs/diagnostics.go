package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/plmap/pkg/core"
)

var diagnosticDescriptions = map[core.DiagKind]string{
	core.DiagLexRecovery:          "The lexer skipped an invalid byte sequence or closed an unterminated string or comment at end of input.",
	core.DiagUnbalancedParens:     "A parameter list ended before its closing parenthesis. The signature is marked partial.",
	core.DiagUnmatchedEnd:         "An END had no open block, or a unit was still open at end of input and was closed there.",
	core.DiagDuplicateDeclaration: "Two units share an identity. Redundant duplicates match the first; conflicting ones differ.",
	core.DiagUnresolvedReference:  "A call names nothing in the corpus and became an external leaf node.",
	core.DiagCycleDetected:        "Units call each other in a cycle. One diagnostic per strongly connected component.",
	core.DiagCancelled:            "The parse was cancelled; the result holds what was recovered so far.",
	core.DiagEmptyInput:           "The source held no tokens after comments and whitespace were removed.",
}

// generateDiagnosticsDocs writes the diagnostic kinds reference page.
func generateDiagnosticsDocs(outDir string) error {
	log.Printf("Generating diagnostics docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	w := NewMarkdownWriter()
	w.Frontmatter("Diagnostics", "Diagnostic kinds reported by the plmap parser")
	w.GeneratedMarker()

	w.Header(1, "Diagnostics")
	w.Paragraph("Parsing never fails on malformed input. Problems are attached to the result as diagnostics, each with a kind and a severity.")

	rows := make([][]string, 0, len(core.DiagKinds()))
	for _, kind := range core.DiagKinds() {
		rows = append(rows, []string{
			InlineCode(string(kind)),
			kind.DefaultSeverity().String(),
			cleanDescription(diagnosticDescriptions[kind]),
		})
	}
	w.Table([]string{"Kind", "Severity", "Meaning"}, rows)

	w.Header(2, "Listing diagnostics")
	w.CodeBlock("bash", "plmap parse --diagnostics")

	filename := filepath.Join(outDir, "diagnostics.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}
