package lineage

import (
	"context"
	"testing"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialects/plsql"
	"github.com/leapstack-labs/plmap/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, src string) (*parser.Result, []core.Reference) {
	t.Helper()
	res := parser.Parse(context.Background(), "test.sql", src, plsql.PLSQL)
	require.Empty(t, res.Diagnostics, "fixture must parse cleanly")
	return res, Extract(res.Tokens, res.Units, plsql.PLSQL, res.Collapsed)
}

func unitNamed(t *testing.T, res *parser.Result, kind core.NodeKind, name string) *core.SourceUnit {
	t.Helper()
	for _, u := range res.Units {
		if u.Kind == kind && u.Name == name {
			return u
		}
	}
	t.Fatalf("no %s %s", kind, name)
	return nil
}

// refsOf renders the references of one unit as "KIND TARGET".
func refsOf(refs []core.Reference, id string) []string {
	var out []string
	for _, r := range refs {
		if r.SourceID == id {
			out = append(out, string(r.Kind)+" "+r.Target)
		}
	}
	return out
}

func TestExtract_CustomerPackage(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE customer_mgmt AS
END customer_mgmt;
/
CREATE OR REPLACE PACKAGE BODY customer_mgmt AS
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
	res, refs := extract(t, src)
	proc := unitNamed(t, res, core.KindProcedure, "UPDATE_CUSTOMER_CREDIT_LIMIT")

	require.Len(t, refs, 4)
	assert.Equal(t, []string{
		"TABLE_READ TABLE1",
		"TABLE_READ TABLE2",
		"TABLE_WRITE TABLE1",
		"TABLE_WRITE AUDIT_LOG",
	}, refsOf(refs, proc.ID))
	assert.Equal(t, "table1", refs[0].Display)
	assert.Equal(t, 12, refs[0].Span.Start.Line)
}

func TestExtract_ReferenceKinds(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE BODY billing AS
  g_rate NUMBER := 0.2;
  TYPE t_ids IS TABLE OF NUMBER;
  PROCEDURE post_invoice(p_id IN NUMBER) IS
    v_ids t_ids := t_ids();
    CURSOR c_lines(p NUMBER) IS SELECT amount FROM invoice_lines WHERE invoice_id = p;
  BEGIN
    FOR r IN c_lines(p_id) LOOP
      v_ids.EXTEND;
      v_ids(v_ids.COUNT) := r.amount;
    END LOOP;
    audit_pkg.log_event('posted', p_id);
    refresh_totals;
    DBMS_OUTPUT.PUT_LINE(TO_CHAR(SYSDATE, 'YYYY'));
    INSERT INTO invoice_archive
      SELECT * FROM invoices i JOIN customers c ON c.id = i.customer_id WHERE i.id = p_id;
    UPDATE invoices SET posted = 'Y', seq = invoice_seq.NEXTVAL WHERE id = p_id;
    DELETE invoice_drafts WHERE id = p_id;
    SELECT 1 INTO g_rate FROM DUAL;
    SELECT EXTRACT(YEAR FROM SYSDATE) INTO g_rate FROM config_values FOR UPDATE;
    MERGE INTO balances b USING payments p ON (b.id = p.id)
      WHEN MATCHED THEN UPDATE SET b.amount = p.amount;
  END post_invoice;
END billing;
/
`
	res, refs := extract(t, src)
	proc := unitNamed(t, res, core.KindProcedure, "POST_INVOICE")
	body := unitNamed(t, res, core.KindPackageBody, "BILLING")

	assert.Equal(t, []string{
		"TABLE_READ INVOICE_LINES",
		"CALL AUDIT_PKG.LOG_EVENT",
		"CALL REFRESH_TOTALS",
		"TABLE_WRITE INVOICE_ARCHIVE",
		"TABLE_READ INVOICES",
		"TABLE_READ CUSTOMERS",
		"TABLE_WRITE INVOICES",
		"SEQUENCE_USE INVOICE_SEQ",
		"TABLE_WRITE INVOICE_DRAFTS",
		"TABLE_READ CONFIG_VALUES",
		"TABLE_WRITE BALANCES",
		"TABLE_READ PAYMENTS",
	}, refsOf(refs, proc.ID))
	assert.Empty(t, refsOf(refs, body.ID))
}

func TestExtract_ChildrenAreScannedSeparately(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE BODY loader AS
  PROCEDURE load_rows IS
  BEGIN
    INSERT INTO staging SELECT * FROM source_rows;
  END load_rows;
BEGIN
  setup_defaults;
END loader;
/
`
	res, refs := extract(t, src)
	body := unitNamed(t, res, core.KindPackageBody, "LOADER")
	proc := unitNamed(t, res, core.KindProcedure, "LOAD_ROWS")

	assert.Equal(t, []string{"CALL SETUP_DEFAULTS"}, refsOf(refs, body.ID))
	assert.Equal(t, []string{"TABLE_WRITE STAGING", "TABLE_READ SOURCE_ROWS"}, refsOf(refs, proc.ID))
}

func TestExtract_CollapsedDuplicatesAreNotAttributed(t *testing.T) {
	src := `CREATE OR REPLACE PACKAGE BODY dup AS
  PROCEDURE p IS BEGIN INSERT INTO first_target VALUES (1); END p;
  PROCEDURE p IS BEGIN INSERT INTO second_target VALUES (1); END p;
END dup;
/
`
	res := parser.Parse(context.Background(), "test.sql", src, plsql.PLSQL)
	require.Equal(t, 1, core.CountKind(res.Diagnostics, core.DiagDuplicateDeclaration))
	refs := Extract(res.Tokens, res.Units, plsql.PLSQL, res.Collapsed)

	require.Len(t, refs, 1)
	assert.Equal(t, "FIRST_TARGET", refs[0].Target)
}

func TestExtract_TriggersViewsAndBlocks(t *testing.T) {
	src := `CREATE OR REPLACE TRIGGER trg_orders_audit
AFTER INSERT ON orders
FOR EACH ROW
BEGIN
  INSERT INTO audit_log (id, changed_by) VALUES (audit_seq.NEXTVAL, :NEW.updated_by);
END;
/
CREATE OR REPLACE VIEW open_orders AS
  SELECT o.id FROM orders o, customers c WHERE o.customer_id = c.id AND o.status IN (SELECT code FROM open_statuses);
/
BEGIN
  order_pkg.nightly_close;
  order_pkg.nightly_close;
END;
/
`
	res, refs := extract(t, src)
	require.Len(t, res.Units, 3)

	assert.Equal(t, []string{"TABLE_WRITE AUDIT_LOG", "SEQUENCE_USE AUDIT_SEQ"}, refsOf(refs, res.Units[0].ID))
	assert.Equal(t, []string{"TABLE_READ ORDERS", "TABLE_READ CUSTOMERS", "TABLE_READ OPEN_STATUSES"}, refsOf(refs, res.Units[1].ID))
	assert.Equal(t, []string{"CALL ORDER_PKG.NIGHTLY_CLOSE"}, refsOf(refs, res.Units[2].ID))
}

func TestExtract_NoDialect(t *testing.T) {
	res := parser.Parse(context.Background(), "test.sql", "BEGIN x; END;", plsql.PLSQL)
	assert.Nil(t, Extract(res.Tokens, res.Units, nil, nil))
}
