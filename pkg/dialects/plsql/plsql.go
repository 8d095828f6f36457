// Package plsql provides the Oracle-style procedural SQL dialect.
//
// The dialect registers itself as "plsql" on import.
package plsql

import "github.com/leapstack-labs/plmap/pkg/dialect"

func init() {
	dialect.Register(PLSQL)
}

const createPrefix = "CREATE [OR REPLACE] [EDITIONABLE|NONEDITIONABLE] "

// PLSQL is the procedural SQL dialect used by Oracle package dumps.
var PLSQL = dialect.NewDialect("plsql").
	// Units
	Statement(dialect.StmtCreatePackage, createPrefix+"PACKAGE").
	Statement(dialect.StmtCreatePackageBody, createPrefix+"PACKAGE BODY").
	Statement(dialect.StmtCreateProcedure, createPrefix+"PROCEDURE").
	Statement(dialect.StmtCreateFunction, createPrefix+"FUNCTION").
	Statement(dialect.StmtCreateTrigger, createPrefix+"TRIGGER").
	Statement(dialect.StmtCreateView, "CREATE [OR REPLACE] [NO FORCE|FORCE] [EDITIONABLE|NONEDITIONABLE] VIEW").
	Statement(dialect.StmtProcedure, "PROCEDURE").
	Statement(dialect.StmtFunction, "FUNCTION").
	Statement(dialect.StmtDeclare, "DECLARE").
	Statement(dialect.StmtBegin, "BEGIN").
	// Statements that are parsed past without producing units
	Statement(dialect.StmtSkipBlock,
		createPrefix+"TYPE",
		createPrefix+"TYPE BODY",
		"CREATE [OR REPLACE] [AND RESOLVE|AND COMPILE] JAVA",
	).
	Statement(dialect.StmtSkip,
		"CREATE", "ALTER", "DROP", "GRANT", "REVOKE", "TRUNCATE", "COMMENT ON",
		"SET", "SHOW", "PROMPT", "SPOOL", "WHENEVER", "EXEC", "CALL",
	).
	// Reference sites
	Statement(dialect.StmtTableRead, "FROM", "JOIN").
	Statement(dialect.StmtTableWrite,
		"UPDATE", "INSERT INTO", "DELETE [FROM]", "TRUNCATE TABLE",
	).
	Statement(dialect.StmtMergeWrite, "MERGE INTO").
	Statement(dialect.StmtIgnore, "FOR UPDATE").
	Declarators("PROCEDURE", "FUNCTION", "CURSOR", "TYPE", "SUBTYPE").
	SequenceColumns("NEXTVAL", "CURRVAL").
	PseudoTables("DUAL").
	Keywords(
		// Block structure
		"AS", "IS", "BEGIN", "END", "EXCEPTION", "DECLARE", "BODY", "PACKAGE",
		"RETURN", "RETURNING", "IN", "OUT", "NOCOPY", "DEFAULT", "CONSTANT",
		"PRAGMA", "AUTONOMOUS_TRANSACTION", "EXCEPTION_INIT", "RESTRICT_REFERENCES",
		"AUTHID", "CURRENT_USER", "DEFINER", "DETERMINISTIC", "PIPELINED",
		"PARALLEL_ENABLE", "RESULT_CACHE", "ACCESSIBLE", "LANGUAGE",
		// Control flow
		"IF", "THEN", "ELSIF", "ELSE", "CASE", "WHEN", "LOOP", "WHILE", "FOR",
		"EXIT", "CONTINUE", "GOTO", "RAISE", "OTHERS", "NULL", "FORALL",
		"OPEN", "FETCH", "CLOSE", "BULK", "COLLECT", "LIMIT", "REVERSE",
		"EXECUTE", "IMMEDIATE", "COMMIT", "ROLLBACK", "SAVEPOINT",
		// Triggers
		"BEFORE", "AFTER", "INSTEAD", "EACH", "ROW", "STATEMENT", "REFERENCING",
		"NEW", "OLD", "PARENT", "FOLLOWS", "PRECEDES", "ENABLE", "DISABLE", "COMPOUND",
		// SQL
		"SELECT", "DISTINCT", "UNIQUE", "ALL", "ANY", "SOME", "INTO", "VALUES",
		"WHERE", "AND", "OR", "NOT", "EXISTS", "BETWEEN", "LIKE", "ESCAPE",
		"GROUP", "BY", "HAVING", "ORDER", "ASC", "DESC", "NULLS", "FIRST", "LAST",
		"UNION", "INTERSECT", "MINUS", "EXCEPT", "WITH", "CONNECT", "START", "PRIOR",
		"INNER", "LEFT", "RIGHT", "FULL", "OUTER", "CROSS", "NATURAL", "ON", "USING",
		"MATCHED", "OVER", "PARTITION", "ROWS", "RANGE", "UNBOUNDED", "PRECEDING",
		"FOLLOWING", "CURRENT", "NOWAIT", "WAIT", "LOCK", "TABLE", "VIEW", "TRIGGER",
		"SEQUENCE", "INDEX", "OF", "TRUE", "FALSE", "ROWTYPE", "RECORD", "VARRAY",
		"REF", "SQL", "SQLCODE", "SQLERRM", "FOUND", "NOTFOUND", "ROWCOUNT", "ISOPEN",
	).
	Builtins(
		// Types
		"VARCHAR2", "NVARCHAR2", "VARCHAR", "CHAR", "NCHAR", "NUMBER", "INTEGER", "INT",
		"PLS_INTEGER", "BINARY_INTEGER", "SIMPLE_INTEGER", "NATURAL", "POSITIVE",
		"FLOAT", "BINARY_FLOAT", "BINARY_DOUBLE", "DECIMAL", "NUMERIC", "SMALLINT",
		"BOOLEAN", "DATE", "TIMESTAMP", "INTERVAL", "CLOB", "NCLOB", "BLOB", "BFILE",
		"RAW", "LONG", "ROWID", "UROWID", "XMLTYPE", "SYS_REFCURSOR",
		// Functions
		"COUNT", "SUM", "AVG", "MIN", "MAX", "NVL", "NVL2", "COALESCE", "NULLIF",
		"DECODE", "GREATEST", "LEAST", "SUBSTR", "INSTR", "LENGTH", "UPPER", "LOWER",
		"INITCAP", "TRIM", "LTRIM", "RTRIM", "LPAD", "RPAD", "REPLACE", "TRANSLATE",
		"CONCAT", "REGEXP_LIKE", "REGEXP_SUBSTR", "REGEXP_REPLACE", "REGEXP_INSTR",
		"TO_CHAR", "TO_DATE", "TO_NUMBER", "TO_TIMESTAMP", "TO_CLOB", "CAST",
		"TRUNC", "ROUND", "ABS", "CEIL", "FLOOR", "MOD", "POWER", "SQRT", "SIGN",
		"SYSDATE", "SYSTIMESTAMP", "ADD_MONTHS", "MONTHS_BETWEEN", "LAST_DAY",
		"NEXT_DAY", "EXTRACT", "ROW_NUMBER", "RANK", "DENSE_RANK", "LAG", "LEAD",
		"LISTAGG", "XMLAGG", "XMLELEMENT", "USER", "UID", "SYS_GUID", "SYS_CONTEXT",
		"RAISE_APPLICATION_ERROR", "DBMS_OUTPUT.PUT_LINE", "TABLE", "EXISTS",
	).
	Build()
