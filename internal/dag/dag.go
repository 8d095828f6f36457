// Package dag provides the dependency graph over source units and leaf nodes.
// It supports cycle detection over CALL edges, topological ordering that
// tolerates cycles, and bounded transitive closure.
package dag

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/plmap/pkg/core"
)

// Node represents a node in the graph.
type Node struct {
	// ID is the unit id or leaf id
	ID string
	// Label is the display name
	Label string
	Kind  core.NodeKind
	// Data holds arbitrary node data
	Data interface{}
}

// Edge is a labelled dependency: From depends on To.
type Edge struct {
	From string
	To   string
	Kind core.RefKind
}

// Direction selects which edges a traversal follows.
type Direction int

// Traversal directions.
const (
	// Upstream follows dependencies: what the node calls, reads or writes.
	Upstream Direction = iota
	// Downstream follows dependents: what calls, reads or writes the node.
	Downstream
	// Both follows edges in either direction.
	Both
)

// ParseDirection converts "up", "down" or "both".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "upstream":
		return Upstream, nil
	case "down", "downstream":
		return Downstream, nil
	case "both", "":
		return Both, nil
	default:
		return Both, fmt.Errorf("unknown direction %q (want up, down or both)", s)
	}
}

// Graph is a directed multigraph: two nodes may be joined by several edges
// of different kinds. Self-loops are allowed (recursion).
type Graph struct {
	nodes   map[string]*Node
	edges   map[string][]Edge // from -> outgoing (dependencies)
	parents map[string][]Edge // to -> incoming (dependents)
	seen    map[Edge]bool
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]Edge),
		parents: make(map[string][]Edge),
		seen:    make(map[Edge]bool),
	}
}

// AddNode adds a node to the graph, updating label, kind and data if it exists.
func (g *Graph) AddNode(id, label string, kind core.NodeKind, data interface{}) {
	if n, exists := g.nodes[id]; exists {
		n.Label, n.Kind, n.Data = label, kind, data
		return
	}
	g.nodes[id] = &Node{ID: id, Label: label, Kind: kind, Data: data}
}

// AddEdge adds an edge of the given kind. Adding the same (from, to, kind)
// twice is a no-op.
func (g *Graph) AddEdge(from, to string, kind core.RefKind) error {
	if _, exists := g.nodes[from]; !exists {
		return fmt.Errorf("source node %q does not exist", from)
	}
	if _, exists := g.nodes[to]; !exists {
		return fmt.Errorf("target node %q does not exist", to)
	}

	e := Edge{From: from, To: to, Kind: kind}
	if g.seen[e] {
		return nil
	}
	g.seen[e] = true
	g.edges[from] = append(g.edges[from], e)
	g.parents[to] = append(g.parents[to], e)
	return nil
}

// GetNode returns a node by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// Dependencies returns the outgoing edges of a node, sorted by kind then target.
func (g *Graph) Dependencies(id string) []Edge {
	return g.sortedEdges(g.edges[id], func(e Edge) string { return e.To })
}

// Dependents returns the incoming edges of a node, sorted by kind then source.
func (g *Graph) Dependents(id string) []Edge {
	return g.sortedEdges(g.parents[id], func(e Edge) string { return e.From })
}

func (g *Graph) sortedEdges(in []Edge, other func(Edge) string) []Edge {
	out := append([]Edge(nil), in...)
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := out[i].Kind.Rank(), out[j].Kind.Rank(); ri != rj {
			return ri < rj
		}
		return g.label(other(out[i])) < g.label(other(out[j]))
	})
	return out
}

func (g *Graph) label(id string) string {
	if n, ok := g.nodes[id]; ok && n.Label != "" {
		return n.Label + "\x00" + id
	}
	return id
}

// GetAllNodes returns all nodes in the graph sorted by ID.
func (g *Graph) GetAllNodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	// Sort for deterministic output
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID < nodes[j].ID
	})
	return nodes
}

// Edges returns every edge sorted by source, kind and target.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.seen))
	for e := range g.seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.Kind != b.Kind {
			return a.Kind.Rank() < b.Kind.Rank()
		}
		return a.To < b.To
	})
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.seen)
}

// DetectCycles returns the strongly connected components of size greater
// than one over CALL edges. Members are sorted; components are ordered by
// their first member.
func (g *Graph) DetectCycles() [][]string {
	return g.cycles(func(e Edge) bool { return e.Kind == core.RefCall })
}

func (g *Graph) cycles(follow func(Edge) bool) [][]string {
	ids := g.sortedIDs()
	adjacency := make(map[string][]string, len(ids))
	for _, id := range ids {
		for _, e := range g.Dependencies(id) {
			if follow(e) && e.To != id {
				adjacency[id] = append(adjacency[id], e.To)
			}
		}
	}

	_, components := stronglyConnectedComponents(ids, adjacency)
	var out [][]string
	for _, c := range components {
		if len(c) > 1 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// TopologicalSort returns the nodes outside any cycle with dependencies
// before dependents, plus the cycles that were left out. Self-loops do not
// count as cycles. It never fails.
func (g *Graph) TopologicalSort() ([]string, [][]string) {
	cycles := g.cycles(func(Edge) bool { return true })
	cyclic := make(map[string]bool)
	for _, c := range cycles {
		for _, id := range c {
			cyclic[id] = true
		}
	}

	visited := make(map[string]bool)
	var result []string

	var visit func(id string)
	visit = func(id string) {
		if visited[id] || cyclic[id] {
			return
		}
		visited[id] = true

		// Visit all dependencies first
		for _, e := range g.Dependencies(id) {
			if e.To != id {
				visit(e.To)
			}
		}

		result = append(result, id)
	}

	for _, id := range g.sortedIDs() {
		visit(id)
	}
	return result, cycles
}

// Closure returns the nodes reachable from id within depth hops in the given
// direction, excluding id itself. A depth of zero or less is unbounded.
func (g *Graph) Closure(id string, depth int, dir Direction) []string {
	reached := map[string]bool{id: true}
	frontier := []string{id}

	for hop := 0; len(frontier) > 0 && (depth <= 0 || hop < depth); hop++ {
		var next []string
		for _, cur := range frontier {
			for _, n := range g.neighbours(cur, dir) {
				if !reached[n] {
					reached[n] = true
					next = append(next, n)
				}
			}
		}
		frontier = next
	}

	delete(reached, id)
	result := make([]string, 0, len(reached))
	for n := range reached {
		result = append(result, n)
	}
	sort.Strings(result)
	return result
}

func (g *Graph) neighbours(id string, dir Direction) []string {
	var out []string
	if dir == Upstream || dir == Both {
		for _, e := range g.edges[id] {
			out = append(out, e.To)
		}
	}
	if dir == Downstream || dir == Both {
		for _, e := range g.parents[id] {
			out = append(out, e.From)
		}
	}
	return out
}

// GetRoots returns nodes that nothing depends on.
func (g *Graph) GetRoots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// GetLeaves returns nodes with no dependencies.
func (g *Graph) GetLeaves() []string {
	var leaves []string
	for id := range g.nodes {
		if len(g.edges[id]) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}

// Subgraph returns a new graph containing only the specified nodes and the
// edges between them.
func (g *Graph) Subgraph(nodeIDs []string) *Graph {
	subgraph := NewGraph()
	nodeSet := make(map[string]bool)

	for _, id := range nodeIDs {
		if node, exists := g.nodes[id]; exists {
			nodeSet[id] = true
			subgraph.AddNode(id, node.Label, node.Kind, node.Data)
		}
	}

	// Add edges between included nodes
	for _, id := range nodeIDs {
		for _, e := range g.edges[id] {
			if nodeSet[e.From] && nodeSet[e.To] {
				_ = subgraph.AddEdge(e.From, e.To, e.Kind)
			}
		}
	}

	return subgraph
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// stronglyConnectedComponents is Tarjan's algorithm. Components have sorted
// members and are returned in completion order.
func stronglyConnectedComponents(nodes []string, adjacency map[string][]string) (map[string]int, [][]string) {
	index := 0
	stack := make([]string, 0, len(nodes))
	onStack := make(map[string]bool, len(nodes))
	indexByNode := make(map[string]int, len(nodes))
	lowLink := make(map[string]int, len(nodes))
	componentOf := make(map[string]int, len(nodes))
	components := make([][]string, 0)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indexByNode[v] = index
		lowLink[v] = index
		index++

		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adjacency[v] {
			if _, seen := indexByNode[w]; !seen {
				strongConnect(w)
				if lowLink[w] < lowLink[v] {
					lowLink[v] = lowLink[w]
				}
			} else if onStack[w] && indexByNode[w] < lowLink[v] {
				lowLink[v] = indexByNode[w]
			}
		}

		if lowLink[v] != indexByNode[v] {
			return
		}

		component := make([]string, 0)
		for {
			last := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[last] = false
			component = append(component, last)
			if last == v {
				break
			}
		}
		sort.Strings(component)
		compID := len(components)
		components = append(components, component)
		for _, n := range component {
			componentOf[n] = compID
		}
	}

	for _, node := range nodes {
		if _, seen := indexByNode[node]; !seen {
			strongConnect(node)
		}
	}

	return componentOf, components
}
