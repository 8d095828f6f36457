// Package docs exports the dependency graph for documentation and
// visualisation tools.
package docs

import (
	"sort"
	"time"

	"github.com/leapstack-labs/plmap/internal/dag"
	"github.com/leapstack-labs/plmap/pkg/core"
)

// Manifest is the serialized dependency graph. Every edge endpoint is
// present in Nodes; detected cycles are listed separately.
type Manifest struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Nodes       []Node    `json:"nodes" yaml:"nodes"`
	Edges       []Edge    `json:"edges" yaml:"edges"`
	Cycles      []Cycle   `json:"cycles" yaml:"cycles"`
	Stats       Stats     `json:"stats" yaml:"stats"`
}

// Node is one unit or leaf.
type Node struct {
	ID    string        `json:"id" yaml:"id"`
	Label string        `json:"label" yaml:"label"`
	Kind  core.NodeKind `json:"kind" yaml:"kind"`
}

// Edge is one resolved reference.
type Edge struct {
	From string       `json:"from" yaml:"from"`
	To   string       `json:"to" yaml:"to"`
	Kind core.RefKind `json:"kind" yaml:"kind"`
}

// Cycle is a set of units that call each other.
type Cycle struct {
	Members []string `json:"members" yaml:"members"`
	Labels  []string `json:"labels" yaml:"labels"`
}

// Stats contains counts for an overview.
type Stats struct {
	UnitCount  int `json:"unit_count" yaml:"unit_count"`
	LeafCount  int `json:"leaf_count" yaml:"leaf_count"`
	EdgeCount  int `json:"edge_count" yaml:"edge_count"`
	CycleCount int `json:"cycle_count" yaml:"cycle_count"`
}

// BuildManifest serializes g. cycles are the member id sets reported by
// g.DetectCycles.
func BuildManifest(g *dag.Graph, cycles [][]string) *Manifest {
	m := &Manifest{
		GeneratedAt: time.Now().UTC(),
		Nodes:       []Node{},
		Edges:       []Edge{},
		Cycles:      []Cycle{},
	}

	known := make(map[string]bool, g.NodeCount())
	for _, n := range g.GetAllNodes() {
		known[n.ID] = true
		m.Nodes = append(m.Nodes, Node{ID: n.ID, Label: n.Label, Kind: n.Kind})
		if n.Kind.IsLeaf() {
			m.Stats.LeafCount++
		} else {
			m.Stats.UnitCount++
		}
	}
	sort.Slice(m.Nodes, func(i, j int) bool { return m.Nodes[i].ID < m.Nodes[j].ID })

	for _, e := range g.Edges() {
		if !known[e.From] || !known[e.To] {
			continue
		}
		m.Edges = append(m.Edges, Edge{From: e.From, To: e.To, Kind: e.Kind})
	}

	for _, members := range cycles {
		c := Cycle{Members: append([]string(nil), members...)}
		for _, id := range members {
			label := id
			if n, ok := g.GetNode(id); ok {
				label = n.Label
			}
			c.Labels = append(c.Labels, label)
		}
		m.Cycles = append(m.Cycles, c)
	}

	m.Stats.EdgeCount = len(m.Edges)
	m.Stats.CycleCount = len(m.Cycles)
	return m
}

// InCycle reports whether the node with id belongs to a detected cycle.
func (m *Manifest) InCycle(id string) bool {
	for _, c := range m.Cycles {
		for _, member := range c.Members {
			if member == id {
				return true
			}
		}
	}
	return false
}
