package dialect

// StatementKind is the classification a keyword sequence maps to.
type StatementKind int

// Statement kinds recognised by the structural parser and the reference extractor.
const (
	StmtNone StatementKind = iota

	// Unit openers.
	StmtCreatePackage
	StmtCreatePackageBody
	StmtCreateProcedure
	StmtCreateFunction
	StmtCreateTrigger
	StmtCreateView
	StmtProcedure // nested or forward declaration
	StmtFunction
	StmtDeclare // anonymous block with a declaration section
	StmtBegin   // anonymous block

	// Non-unit statements.
	StmtSkip      // skipped up to the next ';'
	StmtSkipBlock // skipped up to the next standalone '/'

	// Reference sites.
	StmtTableRead
	StmtTableWrite
	StmtMergeWrite // MERGE INTO; its USING source is a read
	StmtIgnore     // sequences that look like a reference site but are not (FOR UPDATE)
)

var statementNames = map[StatementKind]string{
	StmtNone:              "NONE",
	StmtCreatePackage:     "CREATE_PACKAGE",
	StmtCreatePackageBody: "CREATE_PACKAGE_BODY",
	StmtCreateProcedure:   "CREATE_PROCEDURE",
	StmtCreateFunction:    "CREATE_FUNCTION",
	StmtCreateTrigger:     "CREATE_TRIGGER",
	StmtCreateView:        "CREATE_VIEW",
	StmtProcedure:         "PROCEDURE",
	StmtFunction:          "FUNCTION",
	StmtDeclare:           "DECLARE",
	StmtBegin:             "BEGIN",
	StmtSkip:              "SKIP",
	StmtSkipBlock:         "SKIP_BLOCK",
	StmtTableRead:         "TABLE_READ",
	StmtTableWrite:        "TABLE_WRITE",
	StmtMergeWrite:        "MERGE_WRITE",
	StmtIgnore:            "IGNORE",
}

func (k StatementKind) String() string {
	if name, ok := statementNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// OpensUnit reports whether the statement starts a source unit.
func (k StatementKind) OpensUnit() bool {
	return k >= StmtCreatePackage && k <= StmtBegin
}

// IsCreate reports whether the statement is a top-level CREATE of a unit.
func (k StatementKind) IsCreate() bool {
	return k >= StmtCreatePackage && k <= StmtCreateView
}
