// Package dialect describes the vocabulary of a procedural SQL dialect: which words
// are keywords, which names are builtins rather than calls, and the keyword-sequence
// table that drives statement classification.
package dialect

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect is an immutable description of a procedural SQL dialect.
// Build one with NewDialect(...).Build().
type Dialect struct {
	Name string

	keywords        map[string]struct{}
	builtins        map[string]struct{}
	declarators     map[string]struct{}
	sequenceColumns map[string]struct{}
	pseudoTables    map[string]struct{}
	statements      *ngramTable
}

// IsKeyword reports whether word is reserved by the dialect (case-insensitive).
func (d *Dialect) IsKeyword(word string) bool {
	_, ok := d.keywords[strings.ToUpper(word)]
	return ok
}

// IsBuiltin reports whether name is a builtin function or type, never a CALL target.
func (d *Dialect) IsBuiltin(name string) bool {
	_, ok := d.builtins[strings.ToUpper(name)]
	return ok
}

// IsDeclarator reports whether word introduces a declaration (PROCEDURE, CURSOR...),
// so that a following "name(" is not a call.
func (d *Dialect) IsDeclarator(word string) bool {
	_, ok := d.declarators[strings.ToUpper(word)]
	return ok
}

// IsSequenceColumn reports whether word is a sequence pseudo-column (NEXTVAL, CURRVAL).
func (d *Dialect) IsSequenceColumn(word string) bool {
	_, ok := d.sequenceColumns[strings.ToUpper(word)]
	return ok
}

// IsPseudoTable reports whether name is a pseudo-table that is never a dependency (DUAL).
func (d *Dialect) IsPseudoTable(name string) bool {
	_, ok := d.pseudoTables[strings.ToUpper(name)]
	return ok
}

// Classify returns the statement kind of the longest keyword sequence that
// prefixes words, and how many words it consumed. Words must be upper-case.
func (d *Dialect) Classify(words []string) (StatementKind, int) {
	return d.statements.lookup(words)
}

// MaxSequence is the length of the longest registered keyword sequence.
func (d *Dialect) MaxSequence() int {
	return d.statements.maxLen
}

// Keywords returns the sorted keyword list.
func (d *Dialect) Keywords() []string {
	return sortedKeys(d.keywords)
}

// Builtins returns the sorted builtin list.
func (d *Dialect) Builtins() []string {
	return sortedKeys(d.builtins)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Builder assembles a Dialect.
type Builder struct {
	dialect *Dialect
	err     error
}

// NewDialect starts a builder for a dialect with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name:            name,
			keywords:        make(map[string]struct{}),
			builtins:        make(map[string]struct{}),
			declarators:     make(map[string]struct{}),
			sequenceColumns: make(map[string]struct{}),
			pseudoTables:    make(map[string]struct{}),
			statements:      newNgramTable(),
		},
	}
}

func addAll(set map[string]struct{}, words []string) {
	for _, w := range words {
		set[strings.ToUpper(w)] = struct{}{}
	}
}

// Keywords adds reserved words.
func (b *Builder) Keywords(words ...string) *Builder {
	addAll(b.dialect.keywords, words)
	return b
}

// Builtins adds builtin functions and type names.
func (b *Builder) Builtins(names ...string) *Builder {
	addAll(b.dialect.builtins, names)
	return b
}

// Declarators adds words that introduce a named declaration.
func (b *Builder) Declarators(words ...string) *Builder {
	addAll(b.dialect.declarators, words)
	addAll(b.dialect.keywords, words)
	return b
}

// SequenceColumns adds sequence pseudo-columns.
func (b *Builder) SequenceColumns(words ...string) *Builder {
	addAll(b.dialect.sequenceColumns, words)
	return b
}

// PseudoTables adds table names that never produce a dependency.
func (b *Builder) PseudoTables(names ...string) *Builder {
	addAll(b.dialect.pseudoTables, names)
	return b
}

// Statement maps every expansion of each pattern to kind. Pattern syntax:
// plain words are required, [A|B] is an optional choice, {A|B} a required choice.
// Every word of a pattern becomes a keyword.
func (b *Builder) Statement(kind StatementKind, patterns ...string) *Builder {
	for _, p := range patterns {
		if err := b.dialect.statements.add(kind, p); err != nil && b.err == nil {
			b.err = err
		}
		for _, f := range strings.Fields(p) {
			for _, w := range strings.Split(strings.Trim(f, "[]{}"), "|") {
				if w != "" {
					b.dialect.keywords[strings.ToUpper(w)] = struct{}{}
				}
			}
		}
	}
	return b
}

// Build returns the dialect. It panics on a malformed statement pattern, which
// is a programming error in the dialect definition.
func (b *Builder) Build() *Dialect {
	if b.err != nil {
		panic(fmt.Sprintf("dialect %s: %v", b.dialect.Name, b.err))
	}
	return b.dialect
}
