package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/engine"
	"github.com/leapstack-labs/plmap/pkg/core"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-parse the project whenever a source changes",
		Long: `Watch the project root and re-parse the corpus when a source file is
created, written, renamed or removed. Each re-parse prints a one-line summary.
Stop with Ctrl+C.`,
		Example: `  # Watch with a longer quiet period
  plmap watch --debounce 1s`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			w := &watcher{cc: cc, debounce: debounce}
			return w.run(cmd.Context())
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "Quiet period before re-parsing")
	return cmd
}

type watcher struct {
	cc       *CommandContext
	debounce time.Duration
}

func (w *watcher) run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := watchTree(fw, w.cc.Engine.Root()); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cc.Engine.Root(), err)
	}

	w.reparse(ctx)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if isDir(ev.Name) && !hidden(ev.Name) {
					if err := watchTree(fw, ev.Name); err != nil {
						w.cc.Logger.Warn("failed to watch directory", "path", ev.Name, "error", err)
					}
				}
			}
			if w.relevant(ev) {
				w.cc.Logger.Debug("source changed", "path", ev.Name, "op", ev.Op.String())
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.cc.Logger.Warn("watch error", "error", err)
		case <-timer.C:
			w.reparse(ctx)
		}
	}
}

// relevant reports whether ev touches a source file.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	return w.cc.Engine.Matches(ev.Name)
}

func (w *watcher) reparse(ctx context.Context) {
	start := time.Now()
	corpus, err := w.cc.Engine.ParseProject(ctx)
	if err != nil {
		w.cc.Renderer.Errorf("parse failed: %v\n", err)
		return
	}
	w.cc.Renderer.Println(summarize(corpus, time.Since(start)))
}

// summarize renders a one-line corpus summary.
func summarize(corpus *engine.Corpus, took time.Duration) string {
	merged := corpus.Merged()
	diags := merged.Diagnostics()
	warnings := 0
	for _, d := range diags {
		if d.Severity <= core.SeverityWarning {
			warnings++
		}
	}
	return fmt.Sprintf("[%s] %d files, %d units, %d references, %d cycles, %d diagnostics (%d warnings) in %s",
		time.Now().Format("15:04:05"),
		len(corpus.Files()),
		len(merged.Units()),
		len(merged.References()),
		len(merged.Cycles()),
		len(diags),
		warnings,
		took.Round(time.Millisecond))
}

// watchTree adds dir and its non-hidden subdirectories to the watcher.
func watchTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(path) {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
