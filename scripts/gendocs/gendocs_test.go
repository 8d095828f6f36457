package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/plmap/pkg/core"
)

func TestGenerateDiagnosticsDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateDiagnosticsDocs(dir))

	data, err := os.ReadFile(filepath.Join(dir, "diagnostics.md"))
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, "title: Diagnostics")
	for _, kind := range core.DiagKinds() {
		assert.Contains(t, page, "`"+string(kind)+"`")
		assert.NotEmpty(t, diagnosticDescriptions[kind], "kind %s needs a description", kind)
	}
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	for _, name := range []string{"index", "parse", "graph", "deps", "order", "chunks", "watch", "init", "version"} {
		assert.FileExists(t, filepath.Join(dir, name+".md"))
	}

	data, err := os.ReadFile(filepath.Join(dir, "deps.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "plmap deps <name>")
	assert.Contains(t, string(data), "`--direction`")
}

func TestCleanExample(t *testing.T) {
	in := "  # first\n  plmap parse\n\n    indented"
	assert.Equal(t, "# first\nplmap parse\n\n  indented", cleanExample(in))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "a b \\| c", cleanDescription("a\n  b | c"))
}
