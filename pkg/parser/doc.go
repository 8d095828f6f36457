// Package parser recovers the structure of procedural SQL source.
//
// The parser is tolerant: it never fails on malformed input. Duplicated
// declarations, missing or mismatched END terminators, unbalanced parameter
// lists and unterminated literals are reported as diagnostics on the Result.
//
// Parsing is a single sequential pass over the token stream driven by an explicit
// stack of open units. Statement classification uses the dialect's keyword
// sequence table, so supporting a new construct is a dialect change.
package parser
