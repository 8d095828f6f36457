package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/dag"
	"github.com/leapstack-labs/plmap/internal/engine"
	"github.com/leapstack-labs/plmap/pkg/core"
)

// DepsOptions holds options for the deps command.
type DepsOptions struct {
	Depth     int
	Direction string
}

// NewDepsCommand creates the deps command.
func NewDepsCommand() *cobra.Command {
	opts := &DepsOptions{}

	cmd := &cobra.Command{
		Use:   "deps <name>",
		Short: "Show the lineage of a unit, table or sequence",
		Long: `Display what a node depends on (upstream) and what depends on it
(downstream). The name may be a unit name, a qualified name such as
billing.post_invoice, a table or sequence name, or a node id.`,
		Example: `  # Direct and transitive lineage of a procedure
  plmap deps billing.post_invoice

  # Only the direct callers and readers of a table
  plmap deps orders --direction down --depth 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("depth") {
				opts.Depth = cc.Cfg.Graph.MaxDepth
			}
			dir, err := dag.ParseDirection(opts.Direction)
			if err != nil {
				return err
			}

			corpus, err := cc.LoadCorpus(cmd.Context(), nil)
			if err != nil {
				return err
			}
			merged := corpus.Merged()
			ids := findNodes(merged, args[0])
			if len(ids) == 0 {
				return fmt.Errorf("no unit, table or sequence named %q", args[0])
			}

			views := make([]lineageView, 0, len(ids))
			for _, id := range ids {
				views = append(views, newLineageView(merged, id, opts.Depth, dir))
			}
			return renderDeps(cc, views)
		},
	}

	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max traversal depth (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Direction, "direction", "both", "Traversal direction (up|down|both)")
	_ = cmd.RegisterFlagCompletionFunc("direction", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"up", "down", "both"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// findNodes resolves a user-supplied name to graph node ids.
func findNodes(res *engine.ParseResult, name string) []string {
	g := res.Graph()
	if _, ok := g.GetNode(name); ok {
		return []string{name}
	}

	var ids []string
	for _, u := range res.FindUnits(name) {
		ids = append(ids, u.ID)
	}
	if len(ids) > 0 {
		return ids
	}
	for _, l := range res.Leaves() {
		if strings.EqualFold(l.Name, name) {
			ids = append(ids, l.ID)
		}
	}
	return ids
}

type nodeView struct {
	ID    string        `json:"id" yaml:"id"`
	Label string        `json:"label" yaml:"label"`
	Kind  core.NodeKind `json:"kind" yaml:"kind"`
}

type lineageView struct {
	Node       nodeView   `json:"node" yaml:"node"`
	Upstream   []nodeView `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Downstream []nodeView `json:"downstream,omitempty" yaml:"downstream,omitempty"`
}

func newLineageView(res *engine.ParseResult, id string, depth int, dir dag.Direction) lineageView {
	g := res.Graph()
	view := func(nid string) nodeView {
		n, _ := g.GetNode(nid)
		label := n.Label
		if u, ok := res.Unit(nid); ok {
			label = res.QualifiedName(u)
		}
		return nodeView{ID: nid, Label: label, Kind: n.Kind}
	}

	v := lineageView{Node: view(id)}
	if dir == dag.Upstream || dir == dag.Both {
		for _, nid := range g.Closure(id, depth, dag.Upstream) {
			v.Upstream = append(v.Upstream, view(nid))
		}
	}
	if dir == dag.Downstream || dir == dag.Both {
		for _, nid := range g.Closure(id, depth, dag.Downstream) {
			v.Downstream = append(v.Downstream, view(nid))
		}
	}
	return v
}

func renderDeps(cc *CommandContext, views []lineageView) error {
	r := cc.Renderer
	if r.IsStructured() {
		return r.Encode(views)
	}

	styles := r.Styles()
	for _, v := range views {
		r.Header(1, fmt.Sprintf("%s %s", v.Node.Kind, v.Node.Label))
		rows := make([][]string, 0, len(v.Upstream)+len(v.Downstream))
		for _, n := range v.Upstream {
			rows = append(rows, []string{"upstream", string(n.Kind), n.Label})
		}
		for _, n := range v.Downstream {
			rows = append(rows, []string{"downstream", string(n.Kind), n.Label})
		}
		if len(rows) == 0 {
			r.Println(styles.Muted.Render("No dependencies."))
			continue
		}
		r.Table([]string{"Direction", "Kind", "Name"}, rows)
	}
	return nil
}
