package plsql

import (
	"testing"

	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRegistration(t *testing.T) {
	d, ok := dialect.Get("PLSQL")
	require.True(t, ok, "plsql should register on import")
	assert.Same(t, PLSQL, d)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		words []string
		kind  dialect.StatementKind
		n     int
	}{
		{"package spec", []string{"CREATE", "OR", "REPLACE", "PACKAGE", "CUSTOMER_MGMT"}, dialect.StmtCreatePackage, 4},
		{"package body", []string{"CREATE", "OR", "REPLACE", "PACKAGE", "BODY", "X"}, dialect.StmtCreatePackageBody, 5},
		{"editionable body", []string{"CREATE", "EDITIONABLE", "PACKAGE", "BODY", "X"}, dialect.StmtCreatePackageBody, 4},
		{"procedure", []string{"CREATE", "PROCEDURE", "P"}, dialect.StmtCreateProcedure, 2},
		{"force view", []string{"CREATE", "OR", "REPLACE", "FORCE", "VIEW", "V"}, dialect.StmtCreateView, 5},
		{"trigger", []string{"CREATE", "TRIGGER", "T"}, dialect.StmtCreateTrigger, 2},
		{"type body", []string{"CREATE", "TYPE", "BODY", "T"}, dialect.StmtSkipBlock, 3},
		{"table", []string{"CREATE", "TABLE", "T"}, dialect.StmtSkip, 1},
		{"nested procedure", []string{"PROCEDURE", "P"}, dialect.StmtProcedure, 1},
		{"insert", []string{"INSERT", "INTO", "AUDIT_LOG"}, dialect.StmtTableWrite, 2},
		{"delete from", []string{"DELETE", "FROM", "T"}, dialect.StmtTableWrite, 2},
		{"delete", []string{"DELETE", "T"}, dialect.StmtTableWrite, 1},
		{"merge", []string{"MERGE", "INTO", "T"}, dialect.StmtMergeWrite, 2},
		{"for update", []string{"FOR", "UPDATE", "NOWAIT"}, dialect.StmtIgnore, 2},
		{"from", []string{"FROM", "T"}, dialect.StmtTableRead, 1},
		{"plain word", []string{"V_COUNT", ":="}, dialect.StmtNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, n := PLSQL.Classify(tt.words)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestVocabulary(t *testing.T) {
	assert.True(t, PLSQL.IsKeyword("begin"))
	assert.True(t, PLSQL.IsKeyword("BODY"))
	assert.False(t, PLSQL.IsKeyword("table1"))
	assert.True(t, PLSQL.IsBuiltin("nvl"))
	assert.True(t, PLSQL.IsBuiltin("RAISE_APPLICATION_ERROR"))
	assert.False(t, PLSQL.IsBuiltin("update_customer_credit_limit"))
	assert.True(t, PLSQL.IsDeclarator("cursor"))
	assert.True(t, PLSQL.IsSequenceColumn("nextval"))
	assert.True(t, PLSQL.IsPseudoTable("dual"))
}
