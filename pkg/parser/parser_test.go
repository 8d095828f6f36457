package parser

import (
	"context"
	"testing"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialects/plsql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customerPackage = `CREATE OR REPLACE PACKAGE customer_mgmt AS
    /*
    * Package: CUSTOMER_MGMT
    */
END customer_mgmt;
/

CREATE OR REPLACE PACKAGE BODY customer_mgmt AS
    -- Updates a customer's credit limit.
    PROCEDURE update_customer_credit_limit (
        p_customer_id IN NUMBER,
        p_new_credit_limit IN NUMBER
    ) AS
        v_count NUMBER;
    BEGIN
        SELECT COUNT(*) INTO v_count
          FROM table1 t1
          JOIN table2 t2 ON t1.id = t2.id;
        UPDATE table1 SET credit_limit = p_new_credit_limit WHERE id = p_customer_id;
        INSERT INTO audit_log (id, action) VALUES (p_customer_id, 'CREDIT');
    EXCEPTION
        WHEN OTHERS THEN
            RAISE_APPLICATION_ERROR(-20001, 'failed');
    END update_customer_credit_limit;
END customer_mgmt;
/
`

func parse(t *testing.T, src string) *Result {
	t.Helper()
	return Parse(context.Background(), "test.sql", src, plsql.PLSQL)
}

func unitsByName(res *Result) map[string]*core.SourceUnit {
	out := make(map[string]*core.SourceUnit)
	for _, u := range res.Units {
		out[string(u.Kind)+":"+u.Name] = u
	}
	return out
}

func TestParsePackageStructure(t *testing.T) {
	res := parse(t, customerPackage)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Units, 3)

	byName := unitsByName(res)
	spec := byName["PACKAGE_SPEC:CUSTOMER_MGMT"]
	body := byName["PACKAGE_BODY:CUSTOMER_MGMT"]
	proc := byName["PROCEDURE:UPDATE_CUSTOMER_CREDIT_LIMIT"]
	require.NotNil(t, spec)
	require.NotNil(t, body)
	require.NotNil(t, proc)

	assert.True(t, spec.IsTopLevel())
	assert.True(t, body.IsTopLevel())
	assert.Equal(t, body.ID, proc.ParentID)
	assert.Equal(t, "update_customer_credit_limit", proc.DisplayName)
	assert.Equal(t, "Updates a customer's credit limit.", proc.Doc)
	assert.NotEqual(t, spec.ID, body.ID)

	assert.Equal(t, 1, spec.StartLine())
	assert.Equal(t, 5, spec.EndLine())
	assert.Equal(t, 8, body.StartLine())
	assert.Equal(t, 25, body.EndLine())
	assert.Equal(t, 24, proc.EndLine())

	require.Len(t, proc.Signature.Params, 2)
	assert.Equal(t, core.Parameter{Name: "p_customer_id", Direction: core.DirIn, Type: "NUMBER"}, proc.Signature.Params[0])
}

func TestParseIsIdempotent(t *testing.T) {
	a := parse(t, customerPackage)
	b := parse(t, customerPackage)

	require.Len(t, b.Units, len(a.Units))
	for i := range a.Units {
		assert.Equal(t, a.Units[i].ID, b.Units[i].ID)
		assert.Equal(t, a.Units[i].Name, b.Units[i].Name)
		assert.Equal(t, a.Units[i].Span, b.Units[i].Span)
		assert.Equal(t, a.Units[i].ContentHash, b.Units[i].ContentHash)
	}
}

func assertContainment(t *testing.T, res *Result) {
	t.Helper()
	byID := make(map[string]*core.SourceUnit)
	for _, u := range res.Units {
		byID[u.ID] = u
	}
	for _, u := range res.Units {
		if u.ParentID == "" {
			continue
		}
		parent, ok := byID[u.ParentID]
		require.True(t, ok, "parent of %s must be a kept unit", u.Name)
		assert.True(t, parent.Span.Covers(u.Span), "%s must lie inside %s", u.Name, parent.Name)
	}
	for i, a := range res.Units {
		for _, b := range res.Units[i+1:] {
			if a.ParentID == b.ParentID {
				assert.False(t, a.Span.Overlaps(b.Span), "siblings %s and %s overlap", a.Name, b.Name)
			}
		}
	}
}

func TestParseContainment(t *testing.T) {
	assertContainment(t, parse(t, customerPackage))
	assertContainment(t, parse(t, nestedCreateFixture))
	assertContainment(t, parse(t, "CREATE PACKAGE BODY b AS\n PROCEDURE p IS\n BEGIN\n NULL;\n"))
}

func TestParseDuplicateDeclarations(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE pkg AS
    PROCEDURE p(a IN NUMBER);
    PROCEDURE p(a IN NUMBER);
    PROCEDURE p(a IN NUMBER);
    PROCEDURE p(a IN VARCHAR2);
END pkg;
/
`
	res := parse(t, src)

	procs := 0
	for _, u := range res.Units {
		if u.Kind == core.KindProcedure {
			procs++
			assert.False(t, u.HasBody)
			assert.Equal(t, 2, u.StartLine(), "the first declaration is canonical")
		}
	}
	assert.Equal(t, 1, procs)

	require.Equal(t, 3, core.CountKind(res.Diagnostics, core.DiagDuplicateDeclaration))
	classes := []core.DuplicateClass{}
	for _, d := range res.Diagnostics {
		classes = append(classes, d.Class)
	}
	assert.Equal(t, []core.DuplicateClass{
		core.DuplicateRedundant, core.DuplicateRedundant, core.DuplicateConflicting,
	}, classes)
	assert.Equal(t, core.SeverityInfo, res.Diagnostics[0].Severity)
	assert.Equal(t, core.SeverityWarning, res.Diagnostics[2].Severity)
}

func TestParseDuplicatesInDifferentScopes(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE pkg AS
    PROCEDURE p;
END pkg;
/
CREATE OR REPLACE PACKAGE BODY pkg AS
    PROCEDURE p IS BEGIN NULL; END p;
END pkg;
/
`
	res := parse(t, src)
	assert.Empty(t, res.Diagnostics)
	assert.Len(t, res.Units, 4)
}

func TestParseForwardDeclarationIsSuperseded(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE BODY pkg AS
    PROCEDURE helper;
    PROCEDURE main_proc IS
    BEGIN
        helper;
    END main_proc;
    PROCEDURE helper IS
    BEGIN
        NULL;
    END helper;
END pkg;
/
`
	res := parse(t, src)
	assert.Empty(t, res.Diagnostics)

	byName := unitsByName(res)
	require.Len(t, res.Units, 3)
	helper := byName["PROCEDURE:HELPER"]
	require.NotNil(t, helper)
	assert.True(t, helper.HasBody)
	assert.Equal(t, 7, helper.StartLine())
}

func TestParseUnmatchedEndName(t *testing.T) {
	res := parse(t, "CREATE OR REPLACE PROCEDURE p IS\nBEGIN\n  NULL;\nEND q;\n/\n")

	require.Len(t, res.Units, 1)
	assert.Equal(t, 4, res.Units[0].EndLine())
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, core.DiagUnmatchedEnd, res.Diagnostics[0].Kind)
	assert.Equal(t, "test.sql", res.Diagnostics[0].File)
}

func TestParseEndNameIsCaseInsensitive(t *testing.T) {
	res := parse(t, "CREATE OR REPLACE PROCEDURE Do_Work IS\nBEGIN\n  NULL;\nEND DO_WORK;\n/\n")
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "DO_WORK", res.Units[0].Name)
	assert.Equal(t, "Do_Work", res.Units[0].DisplayName)
}

func TestParseUnterminatedAtEOF(t *testing.T) {
	res := parse(t, "CREATE PACKAGE BODY b AS\n PROCEDURE p IS\n BEGIN\n NULL;\n")

	assert.Len(t, res.Units, 2)
	assert.Equal(t, 2, core.CountKind(res.Diagnostics, core.DiagUnmatchedEnd))
}

func TestParseStrayTerminatorClosesOpenUnits(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE BODY pkg AS
    PROCEDURE p IS
    BEGIN
        NULL;
/
CREATE OR REPLACE PROCEDURE q IS
BEGIN
    NULL;
END q;
/
`
	res := parse(t, src)

	assert.Len(t, res.Units, 3)
	assert.Equal(t, 2, core.CountKind(res.Diagnostics, core.DiagUnmatchedEnd))
	q := unitsByName(res)["PROCEDURE:Q"]
	require.NotNil(t, q)
	assert.True(t, q.IsTopLevel())
}

func TestParseControlFlowDoesNotCloseUnits(t *testing.T) {
	src := `CREATE OR REPLACE PROCEDURE first_proc IS
    v NUMBER;
BEGIN
    IF v > 0 THEN
        v := CASE WHEN v > 1 THEN 2 ELSE 3 END;
    END IF;
    FOR i IN 1..3 LOOP
        NULL;
    END LOOP;
    CASE v WHEN 1 THEN NULL; ELSE NULL; END CASE;
    BEGIN
        NULL;
    EXCEPTION
        WHEN OTHERS THEN NULL;
    END;
END first_proc;
/
CREATE OR REPLACE PROCEDURE second_proc IS
BEGIN
    NULL;
END second_proc;
/
`
	res := parse(t, src)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Units, 2)
	assert.Equal(t, "FIRST_PROC", res.Units[0].Name)
	assert.Equal(t, 16, res.Units[0].EndLine())
	assert.Equal(t, "SECOND_PROC", res.Units[1].Name)
	assert.True(t, res.Units[0].IsTopLevel())
	assert.True(t, res.Units[1].IsTopLevel())
}

const nestedCreateFixture = `CREATE OR REPLACE PACKAGE BODY order_mgmt AS
CREATE OR REPLACE PROCEDURE create_new_order (
    p_customer_id IN NUMBER
) AS
    v_status VARCHAR2(50);
BEGIN
    NULL;
END;
/

CREATE OR REPLACE PROCEDURE update_order_status (
    p_order_id IN NUMBER
) AS
BEGIN
    NULL;
END;
/

END order_mgmt;
/
`

func TestParseNestedCreateInsidePackageBody(t *testing.T) {
	res := parse(t, nestedCreateFixture)
	assert.Empty(t, res.Diagnostics)
	require.Len(t, res.Units, 3)

	body := res.Units[0]
	assert.Equal(t, core.KindPackageBody, body.Kind)
	for _, u := range res.Units[1:] {
		assert.Equal(t, core.KindProcedure, u.Kind)
		assert.Equal(t, body.ID, u.ParentID)
	}
	assert.Equal(t, 19, body.EndLine())
}

func TestParseOtherUnitKinds(t *testing.T) {
	src := `CREATE TABLE t (id NUMBER);
GRANT EXECUTE ON p TO app_user;
CREATE OR REPLACE TYPE t_obj AS OBJECT (id NUMBER);
/
CREATE OR REPLACE VIEW active_customers AS
  SELECT * FROM customers WHERE status = 'A';
/
CREATE OR REPLACE TRIGGER trg_customer_audit
BEFORE UPDATE ON customers
FOR EACH ROW
BEGIN
  INSERT INTO audit_log (id) VALUES (audit_seq.NEXTVAL);
END;
/
DECLARE
  v NUMBER;
BEGIN
  NULL;
END;
/
BEGIN
  pkg.run;
END;
/
CREATE OR REPLACE FUNCTION f RETURN NUMBER IS
BEGIN
  RETURN 1;
END f;
/
`
	res := parse(t, src)
	assert.Empty(t, res.Diagnostics)

	var kinds []core.NodeKind
	for _, u := range res.Units {
		kinds = append(kinds, u.Kind)
		assert.True(t, u.IsTopLevel())
	}
	assert.Equal(t, []core.NodeKind{
		core.KindView, core.KindTrigger, core.KindAnonBlock, core.KindAnonBlock, core.KindFunction,
	}, kinds)
	assert.Equal(t, "ANONYMOUS_BLOCK_15_1", res.Units[2].Name)
	assert.Equal(t, "NUMBER", res.Units[4].Signature.Returns)
}

func TestParseUnbalancedParens(t *testing.T) {
	res := parse(t, "CREATE OR REPLACE PROCEDURE p (a IN NUMBER, b OUT VARCHAR2 IS\nBEGIN\n  NULL;\nEND p;\n/\n")

	require.Len(t, res.Units, 1)
	sig := res.Units[0].Signature
	assert.True(t, sig.Partial)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, core.DirOut, sig.Params[1].Direction)
	assert.Equal(t, "VARCHAR2", sig.Params[1].Type)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, core.DiagUnbalancedParens, res.Diagnostics[0].Kind)
}

func TestParseEmptyInput(t *testing.T) {
	for _, src := range []string{"", "   \n\t", "-- only a comment\n/* and another */", "\xff\xfe"} {
		res := parse(t, src)
		assert.Empty(t, res.Units)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, core.DiagEmptyInput, res.Diagnostics[0].Kind)
		assert.Equal(t, core.SeverityError, res.Diagnostics[0].Severity)
	}
}

func TestParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := Parse(ctx, "test.sql", customerPackage, plsql.PLSQL)
	assert.True(t, res.Cancelled)
	assert.Empty(t, res.Units)
	assert.Equal(t, 1, core.CountKind(res.Diagnostics, core.DiagCancelled))
}

func TestParseSpecAndBodyInOneFileHaveDistinctIDs(t *testing.T) {
	res := parse(t, `CREATE OR REPLACE PACKAGE billing AS
  FUNCTION get_limit(p_id NUMBER) RETURN NUMBER;
  PROCEDURE set_limit(p_id NUMBER, p_limit NUMBER);
END billing;
/
CREATE OR REPLACE PACKAGE BODY billing AS
  FUNCTION get_limit(p_id NUMBER) RETURN NUMBER IS
  BEGIN
    RETURN 0;
  END get_limit;
  PROCEDURE set_limit(p_id NUMBER, p_limit NUMBER) IS
  BEGIN
    NULL;
  END set_limit;
END billing;
/
`)
	require.Empty(t, res.Diagnostics)
	require.Len(t, res.Units, 6)

	seen := make(map[string]bool)
	var spec, body *core.SourceUnit
	for _, u := range res.Units {
		assert.False(t, seen[u.ID], "duplicate id for %s %s", u.Kind, u.Name)
		seen[u.ID] = true
		switch u.Kind {
		case core.KindPackageSpec:
			spec = u
		case core.KindPackageBody:
			body = u
		}
	}
	require.NotNil(t, spec)
	require.NotNil(t, body)

	for _, u := range res.Units {
		if u.ParentID == "" {
			continue
		}
		if u.HasBody {
			assert.Equal(t, body.ID, u.ParentID, u.Name)
		} else {
			assert.Equal(t, spec.ID, u.ParentID, u.Name)
		}
	}
}

// cancelAfter is a context whose Err reports cancellation from its n+1th call on.
type cancelAfter struct {
	context.Context
	n int
}

func (c *cancelAfter) Err() error {
	if c.n <= 0 {
		return context.Canceled
	}
	c.n--
	return nil
}

func TestParseCancelledKeepsClosedUnits(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE BODY pkg AS
  PROCEDURE a IS
  BEGIN
    NULL;
  END a;
  PROCEDURE b IS
  BEGIN
    NULL;
  END b;
END pkg;
/
`
	// The top-level check, pkg opening, a opening and a closing pass; b opening
	// notices the cancellation.
	ctx := &cancelAfter{Context: context.Background(), n: 4}
	res := Parse(ctx, "test.sql", src, plsql.PLSQL)
	require.True(t, res.Cancelled)

	units := unitsByName(res)
	require.Len(t, units, 2)
	body := units["PACKAGE_BODY:PKG"]
	a := units["PROCEDURE:A"]
	require.NotNil(t, body)
	require.NotNil(t, a)
	assert.Equal(t, body.ID, a.ParentID)
	assert.Equal(t, []string{body.ID}, res.Interrupted)
	assert.Equal(t, 1, core.CountKind(res.Diagnostics, core.DiagCancelled))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "TOP_LEVEL", StateTopLevel.String())
	assert.Equal(t, "IN_PACKAGE_BODY", stateOf(core.KindPackageBody).String())
	assert.Equal(t, "IN_BLOCK", stateOf(core.KindAnonBlock).String())
}
