// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Billing is a package spec and body whose body calls a standalone
// procedure that calls back into the package.
const Billing = `CREATE OR REPLACE PACKAGE billing AS
  PROCEDURE post_invoice(p_id IN NUMBER);
END billing;
/
CREATE OR REPLACE PACKAGE BODY billing AS
  PROCEDURE post_invoice(p_id IN NUMBER) IS
  BEGIN
    INSERT INTO invoices (id) VALUES (invoice_seq.NEXTVAL);
    notify(p_id);
  END post_invoice;
END billing;
/
`

// Notify is a standalone procedure completing a cycle with billing.
const Notify = `CREATE OR REPLACE PROCEDURE notify(p_id IN NUMBER) IS
BEGIN
  SELECT COUNT(*) INTO v_n FROM invoices WHERE id = p_id;
  billing.post_invoice(p_id);
END notify;
/
`

// SetupTestProject creates a temporary project with a plmap.yaml and two
// source files, and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"plmap.yaml":           "sources:\n  - \"src/**/*.sql\"\nstate_path: .plmap/state.db\n",
		"src/billing.sql":      Billing,
		"src/procs/notify.sql": Notify,
		"README.md":            "not a source",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", rel, err)
		}
	}
	return dir
}

// Buffers captures command output.
type Buffers struct {
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewBuffers returns empty output buffers.
func NewBuffers() *Buffers {
	return &Buffers{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}}
}
