package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_AddNode_Duplicate(t *testing.T) {
	g := NewGraph()

	_, err := g.AddNode("n1", NodeNumber, 3)
	require.NoError(t, err)

	_, err = g.AddNode("n1", NodeNumber, 5)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestGraph_GetNode_NotFound(t *testing.T) {
	g := NewGraph()

	_, err := g.GetNode("missing")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestGraph_AddEdge_RequiresEndpoints(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode("a", NodePerson, nil)
	require.NoError(t, err)

	_, err = g.AddEdge(EdgeParentOf, "a", "missing", nil)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, err = g.AddEdge(EdgeParentOf, "missing", "a", nil)
	assert.ErrorIs(t, err, ErrNodeNotFound)

	assert.Equal(t, 0, g.EdgeCount())
}

func TestGraph_FindEdges_InsertionOrder(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddNode(id, NodePerson, nil)
		require.NoError(t, err)
	}

	_, err := g.AddEdge(EdgeParentOf, "c", "b", nil)
	require.NoError(t, err)
	_, err = g.AddEdge(EdgeParentOf, "a", "b", nil)
	require.NoError(t, err)
	_, err = g.AddEdge(EdgeSpouseOf, "a", "b", nil)
	require.NoError(t, err)

	edges := g.FindEdges(EdgeFilter{Type: EdgeParentOf})
	require.Len(t, edges, 2)
	assert.Equal(t, "c", edges[0].Source)
	assert.Equal(t, "a", edges[1].Source)

	edges = g.FindEdges(EdgeFilter{Target: "b"})
	assert.Len(t, edges, 3)

	edges = g.FindEdges(EdgeFilter{Type: EdgeSpouseOf, Source: "a"})
	assert.Len(t, edges, 1)
}

func TestGraph_AddEdge_NoDeduplication(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode("a", NodePerson, nil)
	require.NoError(t, err)
	_, err = g.AddNode("b", NodePerson, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = g.AddEdge(EdgeParentOf, "a", "b", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, g.EdgeCount())
}

func TestGraph_StateHash_InsertionOrderIndependent(t *testing.T) {
	g1 := NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		_, err := g1.AddNode(id, NodePerson, nil)
		require.NoError(t, err)
	}
	_, err := g1.AddEdge(EdgeParentOf, "a", "b", nil)
	require.NoError(t, err)
	_, err = g1.AddEdge(EdgeParentOf, "b", "c", nil)
	require.NoError(t, err)

	g2 := NewGraph()
	for _, id := range []string{"c", "a", "b"} {
		_, err := g2.AddNode(id, NodePerson, nil)
		require.NoError(t, err)
	}
	_, err = g2.AddEdge(EdgeParentOf, "b", "c", nil)
	require.NoError(t, err)
	_, err = g2.AddEdge(EdgeParentOf, "a", "b", nil)
	require.NoError(t, err)

	h1, err := g1.StateHash()
	require.NoError(t, err)
	h2, err := g2.StateHash()
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.True(t, g1.Equal(g2))
}

func TestGraph_StateHash_FieldSensitivity(t *testing.T) {
	build := func(value any, edgeType EdgeType, metadata map[string]any) string {
		g := NewGraph()
		_, err := g.AddNode("a", NodeNumber, value)
		require.NoError(t, err)
		_, err = g.AddNode("b", NodeNumber, 2)
		require.NoError(t, err)
		_, err = g.AddEdge(edgeType, "a", "b", metadata)
		require.NoError(t, err)
		h, err := g.StateHash()
		require.NoError(t, err)
		return h
	}

	base := build(1, EdgeAdd, nil)

	assert.NotEqual(t, base, build(2, EdgeAdd, nil), "node value change must change hash")
	assert.NotEqual(t, base, build(1, EdgeGreaterThan, nil), "edge type change must change hash")
	assert.NotEqual(t, base, build(1, EdgeAdd, map[string]any{"k": "v"}), "edge metadata change must change hash")
}

func TestGraph_DocumentRoundTrip(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode("x", NodeNumber, 3)
	require.NoError(t, err)
	_, err = g.AddNode("y", NodeNumber, 5)
	require.NoError(t, err)
	_, err = g.AddEdge(EdgeAdd, "x", "y", map[string]any{"result": "z"})
	require.NoError(t, err)

	data, err := json.Marshal(g.Document())
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))

	restored, err := FromDocument(doc)
	require.NoError(t, err)

	h1, err := g.StateHash()
	require.NoError(t, err)
	h2, err := restored.StateHash()
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestFromDocument_SchemaVersionMismatch(t *testing.T) {
	_, err := FromDocument(Document{SchemaVersion: "9.9.9"})
	assert.ErrorIs(t, err, ErrSchemaVersion)

	_, err = FromDocument(Document{SchemaVersion: "not-a-version"})
	assert.ErrorIs(t, err, ErrSchemaVersion)
}

func TestGraph_CloneIsDeep(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode("n", NodeCode, map[string]any{"origin": "proposer"})
	require.NoError(t, err)

	snapshot := g.Clone()

	node, err := g.GetNode("n")
	require.NoError(t, err)
	node.Value.(map[string]any)["origin"] = "system"

	clonedNode, err := snapshot.GetNode("n")
	require.NoError(t, err)
	assert.Equal(t, "proposer", clonedNode.Value.(map[string]any)["origin"])
}

func TestGraph_Restore(t *testing.T) {
	g := NewGraph()
	_, err := g.AddNode("a", NodePerson, nil)
	require.NoError(t, err)

	before, err := g.StateHash()
	require.NoError(t, err)
	snapshot := g.Clone()

	_, err = g.AddNode("b", NodePerson, nil)
	require.NoError(t, err)

	g.Restore(snapshot)

	after, err := g.StateHash()
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.False(t, g.HasNode("b"))
}
