// Package engine orchestrates parsing of single sources and whole corpora.
//
// A corpus is parsed in two phases. Phase 1 parses every file independently
// and in parallel; each file's references are resolved against that file
// alone. Phase 2 merges the declared units of all files and resolves every
// reference again against the merged namespace, producing one corpus-wide
// dependency graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/plmap/pkg/core"
	"github.com/leapstack-labs/plmap/pkg/dialect"
	"github.com/leapstack-labs/plmap/pkg/lineage"
	"github.com/leapstack-labs/plmap/pkg/parser"
)

// ErrNoSources is returned when a corpus parse is given no sources.
var ErrNoSources = errors.New("no sources to parse")

// Engine parses procedural SQL sources with a fixed dialect.
type Engine struct {
	dialect  *dialect.Dialect
	root     string
	patterns []string
	workers  int

	// Structured logger
	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// Dialect drives statement classification (required)
	Dialect *dialect.Dialect
	// Root is the corpus root directory used by Discover
	Root string
	// Sources are doublestar patterns relative to Root
	Sources []string
	// Workers bounds phase-1 parallelism; zero means GOMAXPROCS
	Workers int
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Source is one in-memory source file.
type Source struct {
	Path string
	Text string
}

// New creates an engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Dialect == nil {
		return nil, fmt.Errorf("engine: %w", dialect.ErrDialectRequired)
	}

	// Initialize logger (use discard handler if nil)
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	root := cfg.Root
	if root == "" {
		root = "."
	}

	logger.Debug("initializing engine", "dialect", cfg.Dialect.Name, "root", root, "workers", workers)

	return &Engine{
		dialect:  cfg.Dialect,
		root:     root,
		patterns: cfg.Sources,
		workers:  workers,
		logger:   logger,
	}, nil
}

// Dialect returns the engine's dialect.
func (e *Engine) Dialect() *dialect.Dialect {
	return e.dialect
}

// ParseSource parses one in-memory file and resolves its references against
// the file's own units. A cancelled parse returns the partial result with a
// CANCELLED diagnostic; units that had closed before the cancellation keep
// their references, units cut short by it have none.
func (e *Engine) ParseSource(ctx context.Context, file, src string) *ParseResult {
	start := time.Now()
	res := parser.Parse(ctx, file, src, e.dialect)

	refs := lineage.Extract(res.Tokens, res.Units, e.dialect, res.Collapsed)
	if len(res.Interrupted) > 0 {
		refs = dropReferencesFrom(refs, res.Interrupted)
	}

	pr := newResult(file, map[string]string{file: src}, res.Tokens, res.Units, refs, res.Diagnostics)
	pr.cancelled = res.Cancelled

	e.logger.Debug("parsed source",
		"file", file,
		"units", len(pr.units),
		"references", len(pr.refs),
		"diagnostics", len(pr.diags),
		"duration", time.Since(start))
	return pr
}

// ParseCorpus parses all sources. Phase 1 runs in parallel with at most
// Workers files in flight. If ctx is cancelled before phase 2 starts, the
// context error is returned.
func (e *Engine) ParseCorpus(ctx context.Context, sources []Source) (*Corpus, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	start := time.Now()
	e.logger.Info("parsing corpus", "files", len(sources), "workers", e.workers)

	results := make([]*ParseResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, s := range sources {
		g.Go(func() error {
			results[i] = e.ParseSource(gctx, s.Path, s.Text)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	corpus := merge(results)
	e.logger.Info("parsed corpus",
		"files", len(results),
		"units", len(corpus.merged.units),
		"references", len(corpus.merged.refs),
		"cycles", len(corpus.merged.cycles),
		"duration", time.Since(start))
	return corpus, nil
}

// ParseFiles reads the given paths and parses them as one corpus.
func (e *Engine) ParseFiles(ctx context.Context, paths []string) (*Corpus, error) {
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read source %s: %w", p, err)
		}
		sources = append(sources, Source{Path: p, Text: string(data)})
	}
	return e.ParseCorpus(ctx, sources)
}

// ParseProject discovers the configured sources under Root and parses them.
func (e *Engine) ParseProject(ctx context.Context) (*Corpus, error) {
	paths, err := e.Discover()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: nothing matches %v under %s", ErrNoSources, e.patterns, e.root)
	}
	return e.ParseFiles(ctx, paths)
}

func dropReferencesFrom(refs []core.Reference, ids []string) []core.Reference {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	kept := refs[:0]
	for _, r := range refs {
		if !skip[r.SourceID] {
			kept = append(kept, r)
		}
	}
	return kept
}
