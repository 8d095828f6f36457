package lineage

import (
	"testing"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resolverFixture = `CREATE OR REPLACE PACKAGE pkg_b AS
  PROCEDURE run;
END pkg_b;
/
CREATE OR REPLACE PACKAGE BODY pkg_a AS
  PROCEDURE run IS BEGIN NULL; END run;
  PROCEDURE main IS
  BEGIN
    run;
    pkg_b.run;
    missing_proc(1);
    INSERT INTO active_orders VALUES (1);
    SELECT order_seq.NEXTVAL INTO v FROM orders;
  END main;
END pkg_a;
/
CREATE OR REPLACE PACKAGE BODY pkg_b AS
  PROCEDURE run IS BEGIN missing_proc; END run;
END pkg_b;
/
CREATE OR REPLACE VIEW active_orders AS SELECT * FROM orders WHERE status = 'A';
/
`

func TestResolve(t *testing.T) {
	res, refs := extract(t, resolverFixture)
	out := Resolve(res.Units, refs)

	main := unitNamed(t, res, core.KindProcedure, "MAIN")
	view := unitNamed(t, res, core.KindView, "ACTIVE_ORDERS")
	bodyA := unitNamed(t, res, core.KindPackageBody, "PKG_A")
	bodyB := unitNamed(t, res, core.KindPackageBody, "PKG_B")

	var runA, runB string
	for _, u := range res.Units {
		if u.Name == "RUN" && u.ParentID == bodyA.ID {
			runA = u.ID
		}
		if u.Name == "RUN" && u.ParentID == bodyB.ID {
			runB = u.ID
		}
	}
	require.NotEmpty(t, runA)
	require.NotEmpty(t, runB)

	got := make(map[string]string)
	for _, r := range out.References {
		if r.SourceID == main.ID {
			got[string(r.Kind)+" "+r.Target] = r.ResolvedID
		}
	}
	assert.Equal(t, map[string]string{
		"CALL RUN":                  runA,
		"CALL PKG_B.RUN":            runB,
		"CALL MISSING_PROC":         "external:MISSING_PROC",
		"TABLE_WRITE ACTIVE_ORDERS": view.ID,
		"SEQUENCE_USE ORDER_SEQ":    "sequence:ORDER_SEQ",
		"TABLE_READ ORDERS":         "table:ORDERS",
	}, got)

	for _, r := range out.References {
		assert.True(t, r.IsResolved())
	}
	for _, r := range refs {
		assert.False(t, r.IsResolved(), "input references must not be modified")
	}

	assert.Equal(t, []Leaf{
		{ID: "external:MISSING_PROC", Kind: core.KindExternalCall, Name: "MISSING_PROC"},
		{ID: "sequence:ORDER_SEQ", Kind: core.KindSequence, Name: "ORDER_SEQ"},
		{ID: "table:ORDERS", Kind: core.KindTable, Name: "ORDERS"},
	}, out.Leaves)

	require.Len(t, out.Diagnostics, 1, "one diagnostic per external target")
	d := out.Diagnostics[0]
	assert.Equal(t, core.DiagUnresolvedReference, d.Kind)
	assert.Equal(t, "test.sql", d.File)
	assert.Equal(t, []string{main.ID}, d.Members)
}

func TestResolve_PrefersDefinitionOverDeclaration(t *testing.T) {
	spec := &core.SourceUnit{ID: "spec", Kind: core.KindPackageSpec, Name: "PKG"}
	body := &core.SourceUnit{ID: "body", Kind: core.KindPackageBody, Name: "PKG", HasBody: true}
	decl := &core.SourceUnit{ID: "a-decl", Kind: core.KindProcedure, Name: "RUN", ParentID: "spec"}
	def := &core.SourceUnit{ID: "z-def", Kind: core.KindProcedure, Name: "RUN", ParentID: "body", HasBody: true}
	caller := &core.SourceUnit{ID: "caller", Kind: core.KindProcedure, Name: "JOB", HasBody: true}

	r := NewResolver([]*core.SourceUnit{spec, body, decl, def, caller})
	out := r.Resolve([]core.Reference{
		{SourceID: "caller", Target: "PKG.RUN", Kind: core.RefCall},
		{SourceID: "caller", Target: "OTHER.RUN", Kind: core.RefCall},
	})

	assert.Equal(t, "z-def", out[0].ResolvedID)
	assert.Equal(t, "external:OTHER.RUN", out[1].ResolvedID)
	assert.Len(t, r.Diagnostics(), 1)
}

func TestResolve_SchemaQualifiedStandalone(t *testing.T) {
	proc := &core.SourceUnit{ID: "p", Kind: core.KindFunction, Name: "CALC_TAX", HasBody: true}
	out := Resolve([]*core.SourceUnit{proc}, []core.Reference{
		{SourceID: "x", Target: "HR.CALC_TAX", Kind: core.RefCall},
		{SourceID: "x", Target: "calc_tax", Kind: core.RefCall},
	})

	assert.Equal(t, "p", out.References[0].ResolvedID)
	assert.Equal(t, "external:calc_tax", out.References[1].ResolvedID, "lookup expects canonical upper-case targets")
	assert.Empty(t, out.Diagnostics[0].File)
}

func TestLeafID(t *testing.T) {
	assert.Equal(t, "table:T", LeafID(core.KindTable, "T"))
	assert.Equal(t, "sequence:S", LeafID(core.KindSequence, "S"))
	assert.Equal(t, "external:E", LeafID(core.KindExternalCall, "E"))
}
