package dialect

import (
	"fmt"
	"sort"
	"strings"
)

// sequence is one expanded keyword sequence.
type sequence struct {
	words []string
	kind  StatementKind
}

// ngramTable maps keyword sequences to statement kinds. Lookups return the
// longest sequence matching a prefix of the input.
type ngramTable struct {
	byFirst map[string][]sequence // sorted longest first
	maxLen  int
}

func newNgramTable() *ngramTable {
	return &ngramTable{byFirst: make(map[string][]sequence)}
}

// add registers every expansion of pattern. Later registrations of an identical
// sequence replace earlier ones.
func (t *ngramTable) add(kind StatementKind, pattern string) error {
	expanded, err := expandPattern(pattern)
	if err != nil {
		return err
	}
	for _, words := range expanded {
		first := words[0]
		seqs := t.byFirst[first]
		replaced := false
		for i := range seqs {
			if equalWords(seqs[i].words, words) {
				seqs[i].kind = kind
				replaced = true
				break
			}
		}
		if !replaced {
			seqs = append(seqs, sequence{words: words, kind: kind})
		}
		sort.SliceStable(seqs, func(i, j int) bool { return len(seqs[i].words) > len(seqs[j].words) })
		t.byFirst[first] = seqs
		if len(words) > t.maxLen {
			t.maxLen = len(words)
		}
	}
	return nil
}

// lookup returns the kind and length of the longest sequence that prefixes words.
func (t *ngramTable) lookup(words []string) (StatementKind, int) {
	if len(words) == 0 {
		return StmtNone, 0
	}
	for _, seq := range t.byFirst[words[0]] {
		if len(seq.words) > len(words) {
			continue
		}
		if equalWords(seq.words, words[:len(seq.words)]) {
			return seq.kind, len(seq.words)
		}
	}
	return StmtNone, 0
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// expandPattern turns "CREATE [OR REPLACE] [EDITIONABLE|NONEDITIONABLE] PACKAGE"
// into every concrete word sequence it denotes. A bracketed group is optional and
// may list alternatives separated by '|'; a group of the form {A|B} is required.
func expandPattern(pattern string) ([][]string, error) {
	out := [][]string{nil}
	fields := strings.Fields(strings.ToUpper(pattern))
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		open := f[0]
		if open != '[' && open != '{' {
			for j := range out {
				out[j] = append(cloneWords(out[j]), f)
			}
			continue
		}

		closing := byte(']')
		if open == '{' {
			closing = '}'
		}
		// Collect the group, which may span several fields ("[OR REPLACE]").
		group := f
		for group[len(group)-1] != closing {
			i++
			if i >= len(fields) {
				return nil, fmt.Errorf("unterminated group in pattern %q", pattern)
			}
			group += " " + fields[i]
		}
		alts := strings.Split(group[1:len(group)-1], "|")

		var next [][]string
		if open == '[' {
			next = append(next, out...)
		}
		for _, alt := range alts {
			words := strings.Fields(alt)
			if len(words) == 0 {
				return nil, fmt.Errorf("empty alternative in pattern %q", pattern)
			}
			for _, prefix := range out {
				next = append(next, append(cloneWords(prefix), words...))
			}
		}
		out = next
	}
	if len(out) == 0 || len(out[0]) == 0 && len(out) == 1 {
		return nil, fmt.Errorf("empty pattern %q", pattern)
	}
	for _, words := range out {
		if len(words) == 0 {
			return nil, fmt.Errorf("pattern %q can expand to nothing", pattern)
		}
	}
	return out, nil
}

func cloneWords(w []string) []string {
	out := make([]string, len(w), len(w)+4)
	copy(out, w)
	return out
}
