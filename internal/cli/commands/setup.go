// Package commands implements the plmap subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/cli/output"
	"github.com/leapstack-labs/plmap/internal/config"
	"github.com/leapstack-labs/plmap/internal/engine"
	"github.com/leapstack-labs/plmap/pkg/dialect"
)

// CommandContext holds the dependencies shared by commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext builds the engine and renderer from the config stored in
// the command's context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromContext(ctx)
	logger := config.GetLogger(ctx)

	d, err := dialect.Lookup(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(engine.Config{
		Dialect: d,
		Root:    cfg.Root,
		Sources: cfg.Sources,
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}, nil
}

// LoadCorpus parses the given files, or discovers the project's sources
// when none are given.
func (c *CommandContext) LoadCorpus(ctx context.Context, files []string) (*engine.Corpus, error) {
	if len(files) == 0 {
		return c.Engine.ParseProject(ctx)
	}
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = filepath.Clean(f)
	}
	return c.Engine.ParseFiles(ctx, paths)
}
