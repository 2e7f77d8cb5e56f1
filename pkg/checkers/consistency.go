package checkers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neuralogix/core/pkg/ir"
)

// ConsistencyChecker validates global graph invariants: the parent_of
// hierarchy must be acyclic, and spouse_of edges must be symmetric.
type ConsistencyChecker struct{}

// NewConsistencyChecker creates a ConsistencyChecker.
func NewConsistencyChecker() *ConsistencyChecker { return &ConsistencyChecker{} }

func (*ConsistencyChecker) Name() string { return "ConsistencyChecker" }

func (c *ConsistencyChecker) Check(g *ir.Graph) Report {
	var issues []Issue

	for _, cycle := range findCycles(g, ir.EdgeParentOf) {
		issues = append(issues, Issue{
			Code:    "PARENT_OF_CYCLE",
			Message: fmt.Sprintf("Cycle detected in parent_of edges: %s", strings.Join(cycle, " -> ")),
			Status:  StatusHardFail,
			NodeIDs: cycle,
			Details: map[string]any{"cycle": cycle},
		})
	}

	for _, pair := range findAsymmetricSpouses(g) {
		issues = append(issues, Issue{
			Code:    "SPOUSE_OF_ASYMMETRIC",
			Message: fmt.Sprintf("spouse_of is not symmetric: %s -> %s exists but not reverse", pair[0], pair[1]),
			Status:  StatusHardFail,
			NodeIDs: []string{pair[0], pair[1]},
			Details: map[string]any{"source": pair[0], "target": pair[1]},
		})
	}

	return reportFor(c.Name(), issues)
}

// findCycles detects cycles in one edge type via depth-first search with a
// recursion stack, reporting the full cycle path. Traversal order is
// deterministic: roots in sorted node-ID order, neighbors in edge-insertion
// order.
func findCycles(g *ir.Graph, edgeType ir.EdgeType) [][]string {
	adj := make(map[string][]string)
	for _, edge := range g.Edges() {
		if edge.Type == edgeType {
			adj[edge.Source] = append(adj[edge.Source], edge.Target)
		}
	}

	var cycles [][]string
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	var path []string

	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		recStack[node] = true
		path = append(path, node)

		for _, neighbor := range adj[node] {
			if !visited[neighbor] {
				dfs(neighbor)
			} else if recStack[neighbor] {
				start := 0
				for i, id := range path {
					if id == neighbor {
						start = i
						break
					}
				}
				cycle := append(append([]string{}, path[start:]...), neighbor)
				cycles = append(cycles, cycle)
			}
		}

		path = path[:len(path)-1]
		recStack[node] = false
	}

	for _, id := range g.NodeIDs() {
		if !visited[id] {
			dfs(id)
		}
	}

	return cycles
}

// findAsymmetricSpouses returns (source, target) pairs where a spouse_of edge
// exists but its mirror does not, sorted for deterministic reporting.
func findAsymmetricSpouses(g *ir.Graph) [][2]string {
	type pair struct{ src, tgt string }
	spouses := make(map[pair]bool)
	for _, edge := range g.Edges() {
		if edge.Type == ir.EdgeSpouseOf {
			spouses[pair{edge.Source, edge.Target}] = true
		}
	}

	var asymmetric [][2]string
	for p := range spouses {
		if !spouses[pair{p.tgt, p.src}] {
			asymmetric = append(asymmetric, [2]string{p.src, p.tgt})
		}
	}
	sort.Slice(asymmetric, func(i, j int) bool {
		if asymmetric[i][0] != asymmetric[j][0] {
			return asymmetric[i][0] < asymmetric[j][0]
		}
		return asymmetric[i][1] < asymmetric[j][1]
	})
	return asymmetric
}
