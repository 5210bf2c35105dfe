package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id%d", n)
	})
}

func TestAddNodeUsesCatalogDefaults(t *testing.T) {
	g := New()
	n := g.AddNode(types.NodeTypeLLMEngine, types.Position{X: 10, Y: 20})

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "LLM Engine", n.Label)
	assert.Equal(t, types.Position{X: 10, Y: 20}, n.Position)
	assert.Equal(t, "gpt-3.5-turbo", n.Config["model"])
	assert.False(t, n.Persisted())

	other := g.AddNode(types.NodeTypeLLMEngine, types.Position{})
	assert.NotEqual(t, n.ID, other.ID)
	assert.Equal(t, 2, g.Len())
}

func TestReturnedNodesAreCopies(t *testing.T) {
	g := New()
	n := g.AddNode(types.NodeTypeKnowledgebase, types.Position{})
	n.Config["n_results"] = 99

	got, err := g.Node(n.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Config["n_results"])

	g.Nodes()[0].Config["n_results"] = 42
	got, _ = g.Node(n.ID)
	assert.Equal(t, 5, got.Config["n_results"])
}

func TestRemoveNodeCascadesAndIsIdempotent(t *testing.T) {
	g := New(sequentialIDs())
	a := g.AddNode(types.NodeTypeUserQuery, types.Position{})
	b := g.AddNode(types.NodeTypeLLMEngine, types.Position{})
	c := g.AddNode(types.NodeTypeOutput, types.Position{})
	_, err := g.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)
	_, err = g.Connect(b.ID, c.ID, "", "")
	require.NoError(t, err)
	_, err = g.Connect(a.ID, c.ID, "", "")
	require.NoError(t, err)

	g.RemoveNode(b.ID)
	for _, e := range g.Edges() {
		assert.False(t, e.Touches(b.ID))
	}
	require.Len(t, g.Edges(), 1)
	nodesAfterFirst, edgesAfterFirst := g.Nodes(), g.Edges()

	g.RemoveNode(b.ID)
	assert.Equal(t, nodesAfterFirst, g.Nodes())
	assert.Equal(t, edgesAfterFirst, g.Edges())

	_, err = g.Node(b.ID)
	assert.True(t, errdefs.IsNotFound(err))

	// remaining nodes are still addressable after reindexing
	_, err = g.Node(c.ID)
	assert.NoError(t, err)
	assert.NoError(t, g.MovePosition(c.ID, types.Position{X: 1}))
}

func TestUpdateConfigIsolation(t *testing.T) {
	g := New()
	a := g.AddNode(types.NodeTypeLLMEngine, types.Position{})
	b := g.AddNode(types.NodeTypeLLMEngine, types.Position{})

	cfg := types.Config{"model": "gpt-4"}
	require.NoError(t, g.UpdateConfig(a.ID, cfg))
	cfg["model"] = "mutated after the call"

	gotA, _ := g.Node(a.ID)
	gotB, _ := g.Node(b.ID)
	assert.Equal(t, types.Config{"model": "gpt-4"}, gotA.Config)
	assert.Equal(t, "gpt-3.5-turbo", gotB.Config["model"])

	err := g.UpdateConfig("missing", types.Config{})
	assert.True(t, errdefs.IsNotFound(err))
}

func TestConnect(t *testing.T) {
	g := New(sequentialIDs())
	a := g.AddNode(types.NodeTypeUserQuery, types.Position{})
	b := g.AddNode(types.NodeTypeOutput, types.Position{})

	e1, err := g.Connect(a.ID, b.ID, "out", "in")
	require.NoError(t, err)
	assert.Equal(t, a.ID, e1.Source)
	assert.Equal(t, b.ID, e1.Target)
	assert.Equal(t, "out", e1.SourceHandle)

	e2, err := g.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)
	assert.Len(t, g.Edges(), 2)

	_, err = g.Connect(a.ID, "ghost", "", "")
	assert.True(t, errdefs.IsNotFound(err))
	_, err = g.Connect("ghost", b.ID, "", "")
	assert.True(t, errdefs.IsNotFound(err))
	assert.Len(t, g.Edges(), 2)
}

func TestDisconnect(t *testing.T) {
	g := New()
	a := g.AddNode(types.NodeTypeUserQuery, types.Position{})
	b := g.AddNode(types.NodeTypeOutput, types.Position{})
	e, err := g.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)

	g.Disconnect(e.ID)
	assert.Empty(t, g.Edges())
	g.Disconnect(e.ID)
	assert.Empty(t, g.Edges())
}

func TestMovePosition(t *testing.T) {
	g := New()
	a := g.AddNode(types.NodeTypeUserQuery, types.Position{})
	require.NoError(t, g.MovePosition(a.ID, types.Position{X: 5, Y: 6}))
	got, _ := g.Node(a.ID)
	assert.Equal(t, types.Position{X: 5, Y: 6}, got.Position)

	before := g.Revision()
	assert.True(t, errdefs.IsNotFound(g.MovePosition("ghost", types.Position{})))
	assert.Equal(t, before, g.Revision())
}

func TestSelectedReflectsLatestConfig(t *testing.T) {
	g := New()
	a := g.AddNode(types.NodeTypeKnowledgebase, types.Position{})
	require.NoError(t, g.Select(a.ID))

	require.NoError(t, g.UpdateConfig(a.ID, types.Config{"n_results": 7}))
	sel, ok := g.Selected()
	require.True(t, ok)
	assert.Equal(t, 7, sel.Config["n_results"])

	g.RemoveNode(a.ID)
	_, ok = g.Selected()
	assert.False(t, ok)

	assert.True(t, errdefs.IsNotFound(g.Select("ghost")))
	g.ClearSelection()
	_, ok = g.Selected()
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	g := New()
	a := g.AddNode(types.NodeTypeLLMEngine, types.Position{})
	b := g.AddNode(types.NodeTypeOutput, types.Position{})
	_, err := g.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)

	c := g.Clone()
	require.NoError(t, c.UpdateConfig(a.ID, types.Config{}))
	c.RemoveNode(b.ID)

	orig, _ := g.Node(a.ID)
	assert.Equal(t, "gpt-3.5-turbo", orig.Config["model"])
	assert.Len(t, g.Edges(), 1)
	assert.Equal(t, 2, g.Len())
}

func TestRevisionCountsMutations(t *testing.T) {
	g := New()
	assert.Zero(t, g.Revision())
	a := g.AddNode(types.NodeTypeUserQuery, types.Position{})
	require.NoError(t, g.Select(a.ID))
	assert.Equal(t, uint64(1), g.Revision())
	g.RemoveNode("ghost")
	assert.Equal(t, uint64(1), g.Revision())
}

func TestRestore(t *testing.T) {
	g, err := Restore(
		[]Node{
			{ID: "a", Type: types.NodeTypeUserQuery, ComponentID: "1"},
			{ID: "b", Type: types.NodeTypeOutput, Position: types.Position{X: 3}, ComponentID: "2"},
		},
		[]Edge{{ID: "e7", Source: "a", Target: "b"}},
	)
	require.NoError(t, err)

	nodes := g.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "User Query", nodes[0].Label)
	assert.Equal(t, types.Config{}, nodes[0].Config)
	assert.True(t, nodes[1].Persisted())
	assert.Equal(t, []Edge{{ID: "e7", Source: "a", Target: "b"}}, g.Edges())
}

func TestRestoreRejectsInconsistentInput(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		edges []Edge
	}{
		{name: "empty id", nodes: []Node{{Type: types.NodeTypeOutput}}},
		{name: "unknown type", nodes: []Node{{ID: "a", Type: "mystery"}}},
		{name: "duplicate node", nodes: []Node{{ID: "a", Type: types.NodeTypeOutput}, {ID: "a", Type: types.NodeTypeOutput}}},
		{
			name:  "dangling edge",
			nodes: []Node{{ID: "a", Type: types.NodeTypeOutput}},
			edges: []Edge{{ID: "e1", Source: "a", Target: "z"}},
		},
		{
			name:  "duplicate edge",
			nodes: []Node{{ID: "a", Type: types.NodeTypeUserQuery}, {ID: "b", Type: types.NodeTypeOutput}},
			edges: []Edge{{ID: "e1", Source: "a", Target: "b"}, {ID: "e1", Source: "a", Target: "b"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Restore(tt.nodes, tt.edges)
			assert.Nil(t, g)
			assert.True(t, errdefs.IsDecode(err), "got %v", err)
		})
	}
}
