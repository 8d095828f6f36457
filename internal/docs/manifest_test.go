package docs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/plmap/internal/dag"
	"github.com/leapstack-labs/plmap/pkg/core"
)

func newTestGraph(t *testing.T) *dag.Graph {
	t.Helper()
	g := dag.NewGraph()
	g.AddNode("a", "ping", core.KindProcedure, nil)
	g.AddNode("b", "pong", core.KindProcedure, nil)
	g.AddNode("table:ORDERS", "ORDERS", core.KindTable, nil)
	require.NoError(t, g.AddEdge("a", "b", core.RefCall))
	require.NoError(t, g.AddEdge("b", "a", core.RefCall))
	require.NoError(t, g.AddEdge("a", "table:ORDERS", core.RefTableRead))
	return g
}

func TestBuildManifest(t *testing.T) {
	g := newTestGraph(t)
	m := BuildManifest(g, g.DetectCycles())

	require.Len(t, m.Nodes, 3)
	assert.Equal(t, Node{ID: "a", Label: "ping", Kind: core.KindProcedure}, m.Nodes[0])
	assert.Len(t, m.Edges, 3)
	assert.Equal(t, Stats{UnitCount: 2, LeafCount: 1, EdgeCount: 3, CycleCount: 1}, m.Stats)

	require.Len(t, m.Cycles, 1)
	assert.Equal(t, []string{"a", "b"}, m.Cycles[0].Members)
	assert.Equal(t, []string{"ping", "pong"}, m.Cycles[0].Labels)
	assert.True(t, m.InCycle("b"))
	assert.False(t, m.InCycle("table:ORDERS"))
}

func TestBuildManifest_NoDanglingEndpoints(t *testing.T) {
	g := newTestGraph(t)
	m := BuildManifest(g, nil)

	ids := make(map[string]bool)
	for _, n := range m.Nodes {
		ids[n.ID] = true
	}
	for _, e := range m.Edges {
		assert.True(t, ids[e.From], "missing from %s", e.From)
		assert.True(t, ids[e.To], "missing to %s", e.To)
	}
	assert.NotNil(t, m.Cycles)
}

func TestBuildManifest_EmptyGraph(t *testing.T) {
	m := BuildManifest(dag.NewGraph(), nil)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m, FormatJSON))
	assert.Contains(t, buf.String(), `"nodes": []`)
	assert.Contains(t, buf.String(), `"edges": []`)
}

func TestWrite(t *testing.T) {
	g := newTestGraph(t)
	m := BuildManifest(g, g.DetectCycles())

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, m, FormatJSON))
		var back Manifest
		require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, m.Edges, back.Edges)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, m, FormatYAML))
		var back Manifest
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
		assert.Equal(t, m.Nodes, back.Nodes)
		assert.Equal(t, m.Cycles, back.Cycles)
	})

	t.Run("mermaid", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, m, FormatMermaid))
		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))
		assert.Contains(t, out, `n2[("ORDERS")]`)
		assert.Contains(t, out, "n0 -->|CALL| n1")
		assert.Contains(t, out, "class n0 cycle")
		assert.NotContains(t, out, "class n2 cycle")
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("dot")
	assert.Error(t, err)
}
