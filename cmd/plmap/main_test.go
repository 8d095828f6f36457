// Package main provides tests for the plmap CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/plmap/internal/cli"
)

func testdataDir(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	return filepath.Join(wd, "..", "..", "testdata", "hr")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := run(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}
	if !strings.Contains(output, "plmap") {
		t.Errorf("version output should contain 'plmap', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := run(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"parse", "graph", "deps", "order", "chunks", "watch", "init"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestParseCommand(t *testing.T) {
	output, err := run(t, "parse", "--root", testdataDir(t), "-o", "json")
	if err != nil {
		t.Fatalf("parse command error = %v", err)
	}

	for _, expected := range []string{"hr_pkg.get_salary", "hr_pkg.raise_salary", "trg_emp_audit", "(p_emp_id IN NUMBER) RETURN NUMBER"} {
		if !strings.Contains(output, expected) {
			t.Errorf("parse output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestDepsCommand(t *testing.T) {
	output, err := run(t, "deps", "salary_history", "--root", testdataDir(t), "--direction", "down")
	if err != nil {
		t.Fatalf("deps command error = %v", err)
	}
	if !strings.Contains(output, "hr_pkg.raise_salary") {
		t.Errorf("deps output should contain 'hr_pkg.raise_salary', got: %s", output)
	}
}

func TestGraphCommand(t *testing.T) {
	output, err := run(t, "graph", "--root", testdataDir(t), "--format", "mermaid")
	if err != nil {
		t.Fatalf("graph command error = %v", err)
	}
	if !strings.Contains(output, "flowchart LR") {
		t.Errorf("graph output should contain 'flowchart LR', got: %s", output)
	}
}

func TestChunksSync(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.db")

	output, err := run(t, "chunks", "--root", testdataDir(t), "--state", statePath, "--sync")
	if err != nil {
		t.Fatalf("chunks command error = %v", err)
	}
	if !strings.Contains(output, "Synced") {
		t.Errorf("chunks output should contain 'Synced', got: %s", output)
	}
	if _, err := os.Stat(statePath); err != nil {
		t.Errorf("state database should exist: %v", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := run(t, "nonexistent"); err == nil {
		t.Error("expected error for unknown command")
	}
}
