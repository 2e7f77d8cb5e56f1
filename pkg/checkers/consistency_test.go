package checkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralogix/core/pkg/ir"
)

func TestConsistencyChecker_SelfLoopCycle(t *testing.T) {
	g := ir.NewGraph()
	_, err := g.AddNode("a", ir.NodePerson, nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeParentOf, "a", "a", nil)
	require.NoError(t, err)

	report := NewConsistencyChecker().Check(g)
	require.Equal(t, StatusHardFail, report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "PARENT_OF_CYCLE", report.Issues[0].Code)
	assert.Contains(t, report.Issues[0].NodeIDs, "a")
}

func TestConsistencyChecker_LongCycleReportsFullPath(t *testing.T) {
	g := ir.NewGraph()
	for _, id := range []string{"a", "b", "c"} {
		_, err := g.AddNode(id, ir.NodePerson, nil)
		require.NoError(t, err)
	}
	_, err := g.AddEdge(ir.EdgeParentOf, "a", "b", nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeParentOf, "b", "c", nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeParentOf, "c", "a", nil)
	require.NoError(t, err)

	report := NewConsistencyChecker().Check(g)
	require.Equal(t, StatusHardFail, report.Status)
	require.NotEmpty(t, report.Issues)

	issue := report.Issues[0]
	assert.Equal(t, "PARENT_OF_CYCLE", issue.Code)
	for _, id := range []string{"a", "b", "c"} {
		assert.Contains(t, issue.NodeIDs, id)
	}
}

func TestConsistencyChecker_AcyclicChainOK(t *testing.T) {
	g := ir.NewGraph()
	for _, id := range []string{"gp", "p", "c"} {
		_, err := g.AddNode(id, ir.NodePerson, nil)
		require.NoError(t, err)
	}
	_, err := g.AddEdge(ir.EdgeParentOf, "gp", "p", nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeParentOf, "p", "c", nil)
	require.NoError(t, err)

	report := NewConsistencyChecker().Check(g)
	assert.Equal(t, StatusOK, report.Status)
}

func TestConsistencyChecker_AsymmetricSpouse(t *testing.T) {
	g := ir.NewGraph()
	_, err := g.AddNode("x", ir.NodePerson, nil)
	require.NoError(t, err)
	_, err = g.AddNode("y", ir.NodePerson, nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeSpouseOf, "x", "y", nil)
	require.NoError(t, err)

	report := NewConsistencyChecker().Check(g)
	require.Equal(t, StatusHardFail, report.Status)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, "SPOUSE_OF_ASYMMETRIC", report.Issues[0].Code)
	assert.ElementsMatch(t, []string{"x", "y"}, report.Issues[0].NodeIDs)
}

func TestConsistencyChecker_MirroredSpouseOK(t *testing.T) {
	g := ir.NewGraph()
	_, err := g.AddNode("x", ir.NodePerson, nil)
	require.NoError(t, err)
	_, err = g.AddNode("y", ir.NodePerson, nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeSpouseOf, "x", "y", nil)
	require.NoError(t, err)
	_, err = g.AddEdge(ir.EdgeSpouseOf, "y", "x", nil)
	require.NoError(t, err)

	report := NewConsistencyChecker().Check(g)
	assert.Equal(t, StatusOK, report.Status)
	assert.Empty(t, report.Issues)
}
