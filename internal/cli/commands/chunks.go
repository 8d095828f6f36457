package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/chunk"
	"github.com/leapstack-labs/plmap/internal/state"
)

// ChunksOptions holds options for the chunks command.
type ChunksOptions struct {
	Sync  bool
	Batch bool
}

// NewChunksCommand creates the chunks command.
func NewChunksCommand() *cobra.Command {
	opts := &ChunksOptions{}

	cmd := &cobra.Command{
		Use:   "chunks [files...]",
		Short: "Export units as self-contained chunks",
		Long: `Serialize every unit with its signature, parent chain, sorted dependency
list and content hash.

With --sync the chunks are written to the state database and the command
reports which chunks were added, changed, unchanged or removed since the
previous sync. With --batch the chunks are grouped into batches that fit the
chunks.max_batch_tokens budget.`,
		Example: `  # Export chunks as JSON
  plmap chunks -o json

  # Update the chunk cache
  plmap chunks --sync

  # Plan batches of at most 2000 estimated tokens
  plmap chunks --batch --max-batch-tokens 2000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-batch-tokens") {
				cc.Cfg.Chunks.MaxBatchTokens, _ = cmd.Flags().GetInt("max-batch-tokens")
			}
			corpus, err := cc.LoadCorpus(cmd.Context(), args)
			if err != nil {
				return err
			}
			chunks := chunk.Build(corpus.Merged())

			if opts.Sync {
				if err := syncChunks(cmd, cc, chunks); err != nil {
					return err
				}
			}
			if opts.Batch {
				return renderBatches(cc, chunk.Batch(chunks, cc.Cfg.Chunks.MaxBatchTokens, cc.Cfg.Chunks.CharsPerToken))
			}
			if opts.Sync {
				return nil
			}
			return renderChunks(cc, chunks)
		},
	}

	cmd.Flags().BoolVar(&opts.Sync, "sync", false, "Write chunks to the state database")
	cmd.Flags().BoolVar(&opts.Batch, "batch", false, "Group chunks into token-budget batches")
	cmd.Flags().Int("max-batch-tokens", 0, "Batch token budget (default from config)")
	return cmd
}

func syncChunks(cmd *cobra.Command, cc *CommandContext, chunks []chunk.Chunk) error {
	path := cc.Cfg.StatePath
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	store, err := state.Open(path, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	res, err := store.Sync(cmd.Context(), chunks)
	if err != nil {
		return err
	}

	r := cc.Renderer
	if r.IsStructured() {
		return r.Encode(res)
	}
	r.Printf("Synced %d chunks: %d added, %d changed, %d unchanged, %d removed %s\n",
		len(chunks), len(res.Added), len(res.Changed), len(res.Unchanged), len(res.Removed),
		r.Styles().Muted.Render("(run "+res.RunID+")"))
	return nil
}

func renderChunks(cc *CommandContext, chunks []chunk.Chunk) error {
	r := cc.Renderer
	if r.IsStructured() {
		return r.Encode(chunks)
	}

	rows := make([][]string, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, []string{
			string(c.Kind),
			c.QualifiedName,
			fmt.Sprintf("%s:%d-%d", c.File, c.StartLine, c.EndLine),
			strconv.Itoa(len(c.Dependencies)),
			c.ContentHash,
		})
	}
	r.Header(1, "Chunks")
	r.Table([]string{"Kind", "Name", "Location", "Deps", "Hash"}, rows)
	return nil
}

type batchView struct {
	Index  int      `json:"index" yaml:"index"`
	Tokens int      `json:"estimated_tokens" yaml:"estimated_tokens"`
	IDs    []string `json:"ids" yaml:"ids"`
	names  []string
}

func renderBatches(cc *CommandContext, batches [][]chunk.Chunk) error {
	views := make([]batchView, 0, len(batches))
	for i, b := range batches {
		v := batchView{Index: i + 1}
		for _, c := range b {
			v.Tokens += chunk.EstimateTokens(c, cc.Cfg.Chunks.CharsPerToken)
			v.IDs = append(v.IDs, c.ID)
			v.names = append(v.names, c.QualifiedName)
		}
		views = append(views, v)
	}

	r := cc.Renderer
	if r.IsStructured() {
		return r.Encode(views)
	}

	rows := make([][]string, 0, len(views))
	for _, v := range views {
		rows = append(rows, []string{strconv.Itoa(v.Index), strconv.Itoa(len(v.IDs)), strconv.Itoa(v.Tokens), strings.Join(v.names, ", ")})
	}
	r.Header(1, fmt.Sprintf("Batches (budget %d tokens)", cc.Cfg.Chunks.MaxBatchTokens))
	r.Table([]string{"Batch", "Chunks", "Est. tokens", "Units"}, rows)
	return nil
}
