package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/cli/output"
	"github.com/leapstack-labs/plmap/internal/dag"
	"github.com/leapstack-labs/plmap/internal/docs"
	"github.com/leapstack-labs/plmap/internal/engine"
)

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	var (
		format string
		focus  string
		depth  int
	)

	cmd := &cobra.Command{
		Use:   "graph [files...]",
		Short: "Export the dependency graph",
		Long: `Export the corpus-wide dependency graph as a manifest of nodes, edges and
detected call cycles. Every edge endpoint is present in the node list.`,
		Example: `  # Export as JSON
  plmap graph

  # Export as YAML
  plmap graph --format yaml

  # Render a mermaid flowchart
  plmap graph --format mermaid > graph.mmd

  # Only the neighbourhood of one procedure
  plmap graph --focus billing.post_invoice --depth 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if format == "" && cc.Renderer.Mode() == output.ModeYAML {
				format = string(docs.FormatYAML)
			}
			f, err := docs.ParseFormat(format)
			if err != nil {
				return err
			}

			corpus, err := cc.LoadCorpus(cmd.Context(), args)
			if err != nil {
				return err
			}
			merged := corpus.Merged()
			g, cycles := merged.Graph(), merged.Cycles()
			if focus != "" {
				if g, cycles, err = focusGraph(merged, focus, depth); err != nil {
					return err
				}
			}
			return docs.Write(cc.Renderer.Out(), docs.BuildManifest(g, cycles), f)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "Manifest format (json|yaml|mermaid)")
	cmd.Flags().StringVar(&focus, "focus", "", "Only export the lineage of this node")
	cmd.Flags().IntVar(&depth, "depth", 0, "Max distance from the focus node (0 = unlimited)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"json", "yaml", "mermaid"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// focusGraph cuts the graph down to the named nodes and everything within
// depth of them in either direction. Cycles not wholly inside the cut are
// dropped.
func focusGraph(res *engine.ParseResult, name string, depth int) (*dag.Graph, [][]string, error) {
	ids := findNodes(res, name)
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("no unit, table or sequence named %q", name)
	}

	g := res.Graph()
	keep := make(map[string]bool)
	for _, id := range ids {
		keep[id] = true
		for _, dir := range []dag.Direction{dag.Upstream, dag.Downstream} {
			for _, nid := range g.Closure(id, depth, dir) {
				keep[nid] = true
			}
		}
	}
	nodeIDs := make([]string, 0, len(keep))
	for id := range keep {
		nodeIDs = append(nodeIDs, id)
	}

	var cycles [][]string
	for _, c := range res.Cycles() {
		inside := true
		for _, id := range c {
			inside = inside && keep[id]
		}
		if inside {
			cycles = append(cycles, c)
		}
	}
	return g.Subgraph(nodeIDs), cycles, nil
}
