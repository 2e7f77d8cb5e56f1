package checkers

import (
	"fmt"
	"sort"

	"github.com/neuralogix/core/pkg/ir"
)

// Constraint restricts which node types may appear at either end of an edge
// type.
type Constraint struct {
	Sources map[ir.NodeType]bool
	Targets map[ir.NodeType]bool
}

// EdgeConstraints is the static allowed-(source, target) table per edge type.
var EdgeConstraints = map[ir.EdgeType]Constraint{
	ir.EdgeParentOf:    constraint(types(ir.NodePerson), types(ir.NodePerson)),
	ir.EdgeSpouseOf:    constraint(types(ir.NodePerson), types(ir.NodePerson)),
	ir.EdgeAdd:         constraint(types(ir.NodeNumber), types(ir.NodeNumber)),
	ir.EdgeGreaterThan: constraint(types(ir.NodeNumber), types(ir.NodeNumber)),

	ir.EdgeImplements:  constraint(types(ir.NodeCode), types(ir.NodeSpec)),
	ir.EdgeVerifies:    constraint(types(ir.NodeTest), types(ir.NodeCode)),
	ir.EdgeResultsFrom: constraint(types(ir.NodeExecutionResult), types(ir.NodeTest)),

	ir.EdgeHasAttribute: constraint(types(ir.NodeEntity), types(ir.NodeValue)),
	ir.EdgeContains:     constraint(types(ir.NodeValueSet), types(ir.NodeValue)),
}

func constraint(sources, targets map[ir.NodeType]bool) Constraint {
	return Constraint{Sources: sources, Targets: targets}
}

func types(ts ...ir.NodeType) map[ir.NodeType]bool {
	m := make(map[ir.NodeType]bool, len(ts))
	for _, t := range ts {
		m[t] = true
	}
	return m
}

// TypeChecker validates graph structure against the closed schema: node and
// edge types must belong to the closed enumerations and edge endpoints must
// satisfy the constraint table.
type TypeChecker struct{}

// NewTypeChecker creates a TypeChecker.
func NewTypeChecker() *TypeChecker { return &TypeChecker{} }

func (*TypeChecker) Name() string { return "TypeChecker" }

func (c *TypeChecker) Check(g *ir.Graph) Report {
	var issues []Issue

	for _, id := range g.NodeIDs() {
		node, err := g.GetNode(id)
		if err != nil {
			continue
		}
		if !ir.ValidNodeType(node.Type) {
			issues = append(issues, Issue{
				Code:    "INVALID_NODE_TYPE",
				Message: fmt.Sprintf("Node %q has invalid type %q", id, node.Type),
				Status:  StatusHardFail,
				NodeIDs: []string{id},
				Details: map[string]any{"node_type": string(node.Type)},
			})
		}
	}

	for i, edge := range g.Edges() {
		// Edges have no IDs of their own; reference them by index.
		edgeID := fmt.Sprintf("edge_%d", i)

		if !ir.ValidEdgeType(edge.Type) {
			issues = append(issues, Issue{
				Code:    "INVALID_EDGE_TYPE",
				Message: fmt.Sprintf("Edge has invalid type %q", edge.Type),
				Status:  StatusHardFail,
				EdgeIDs: []string{edgeID},
				Details: map[string]any{"edge_type": string(edge.Type)},
			})
			continue
		}

		cons, ok := EdgeConstraints[edge.Type]
		if !ok {
			continue
		}

		if src, err := g.GetNode(edge.Source); err == nil && !cons.Sources[src.Type] {
			issues = append(issues, Issue{
				Code:    "INVALID_EDGE_SOURCE_TYPE",
				Message: fmt.Sprintf("Edge %q requires source type in %v, got %s", edge.Type, typeNames(cons.Sources), src.Type),
				Status:  StatusHardFail,
				NodeIDs: []string{edge.Source},
				EdgeIDs: []string{edgeID},
				Details: map[string]any{
					"edge_type":        string(edge.Type),
					"source_node_type": string(src.Type),
					"allowed_types":    typeNames(cons.Sources),
				},
			})
		}

		if tgt, err := g.GetNode(edge.Target); err == nil && !cons.Targets[tgt.Type] {
			issues = append(issues, Issue{
				Code:    "INVALID_EDGE_TARGET_TYPE",
				Message: fmt.Sprintf("Edge %q requires target type in %v, got %s", edge.Type, typeNames(cons.Targets), tgt.Type),
				Status:  StatusHardFail,
				NodeIDs: []string{edge.Target},
				EdgeIDs: []string{edgeID},
				Details: map[string]any{
					"edge_type":        string(edge.Type),
					"target_node_type": string(tgt.Type),
					"allowed_types":    typeNames(cons.Targets),
				},
			})
		}
	}

	return reportFor(c.Name(), issues)
}

func typeNames(set map[ir.NodeType]bool) []string {
	names := make([]string, 0, len(set))
	for t := range set {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}
