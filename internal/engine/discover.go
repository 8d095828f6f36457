package engine

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultSources are the source patterns used when none are configured.
var DefaultSources = []string{"**/*.sql", "**/*.pks", "**/*.pkb", "**/*.prc", "**/*.fnc", "**/*.trg"}

// Root returns the corpus root directory.
func (e *Engine) Root() string {
	return e.root
}

// Matches reports whether path, absolute or relative to Root, is a source
// file under the configured patterns.
func (e *Engine) Matches(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(e.root, path)
		if err != nil || strings.HasPrefix(r, "..") {
			return false
		}
		rel = r
	}
	return MatchSource(e.sourcePatterns(), filepath.ToSlash(rel))
}

func (e *Engine) sourcePatterns() []string {
	if len(e.patterns) == 0 {
		return DefaultSources
	}
	return e.patterns
}

// Discover walks Root and returns the files matching any source pattern,
// sorted. Hidden directories are skipped.
func (e *Engine) Discover() ([]string, error) {
	patterns := e.sourcePatterns()
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid source pattern %q", p)
		}
	}

	var paths []string
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != e.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			return err
		}
		if MatchSource(patterns, filepath.ToSlash(rel)) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover sources under %s: %w", e.root, err)
	}

	sort.Strings(paths)
	e.logger.Debug("discovered sources", "root", e.root, "count", len(paths))
	return paths, nil
}

// MatchSource reports whether the slash-separated relative path matches any
// of the patterns.
func MatchSource(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}
