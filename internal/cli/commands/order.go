package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/plmap/internal/engine"
)

// NewOrderCommand creates the order command.
func NewOrderCommand() *cobra.Command {
	var unitsOnly bool

	cmd := &cobra.Command{
		Use:   "order",
		Short: "Show a dependency-first ordering of the corpus",
		Long: `Display nodes ordered so that every node comes after what it depends on.
Nodes that take part in a cycle cannot be ordered; they are listed separately.`,
		Example: `  # Deployment order of units only
  plmap order --units`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			corpus, err := cc.LoadCorpus(cmd.Context(), nil)
			if err != nil {
				return err
			}
			return renderOrder(cc, corpus.Merged(), unitsOnly)
		},
	}

	cmd.Flags().BoolVar(&unitsOnly, "units", false, "Leave out tables, sequences and external calls")
	return cmd
}

type orderView struct {
	Order  []string   `json:"order" yaml:"order"`
	Cycles [][]string `json:"cycles" yaml:"cycles"`
}

func renderOrder(cc *CommandContext, res *engine.ParseResult, unitsOnly bool) error {
	label := func(id string) string {
		if u, ok := res.Unit(id); ok {
			return res.QualifiedName(u)
		}
		if n, ok := res.Graph().GetNode(id); ok {
			return n.Label
		}
		return id
	}

	ids, cycles := res.Graph().TopologicalSort()
	v := orderView{Order: []string{}, Cycles: [][]string{}}
	for _, id := range ids {
		if _, ok := res.Unit(id); unitsOnly && !ok {
			continue
		}
		v.Order = append(v.Order, label(id))
	}
	for _, c := range cycles {
		names := make([]string, len(c))
		for i, id := range c {
			names[i] = label(id)
		}
		v.Cycles = append(v.Cycles, names)
	}

	r := cc.Renderer
	if r.IsStructured() {
		return r.Encode(v)
	}

	r.Header(1, "Order")
	rows := make([][]string, len(v.Order))
	for i, name := range v.Order {
		rows[i] = []string{strconv.Itoa(i + 1), name}
	}
	r.Table([]string{"#", "Name"}, rows)

	if len(v.Cycles) > 0 {
		r.Header(1, "Cycles")
		for _, c := range v.Cycles {
			r.Printf("  %s\n", r.Styles().Warning.Render(strings.Join(c, " <-> ")))
		}
	}
	return nil
}
