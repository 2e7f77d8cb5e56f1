package checkers

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/neuralogix/core/pkg/ir"
)

// PolicyRule is an operator-supplied CEL expression that must evaluate to
// true over the graph summary.
type PolicyRule struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// PolicyChecker evaluates CEL policy rules against a summary of the graph.
//
// Each rule sees these variables:
//
//	node_count  int
//	edge_count  int
//	node_types  map[string]int (count per node type)
//	edge_types  map[string]int (count per edge type)
//	node_ids    list[string] (sorted)
//
// A rule evaluating to false is a HARD_FAIL; a rule that fails to evaluate is
// an ABSTAIN, since the checker cannot judge the graph either way.
type PolicyChecker struct {
	rules    []PolicyRule
	programs []cel.Program
}

// NewPolicyChecker compiles the rules. Compilation errors are reported at
// construction, not per check.
func NewPolicyChecker(rules []PolicyRule) (*PolicyChecker, error) {
	env, err := cel.NewEnv(
		cel.Variable("node_count", cel.IntType),
		cel.Variable("edge_count", cel.IntType),
		cel.Variable("node_types", cel.MapType(cel.StringType, cel.IntType)),
		cel.Variable("edge_types", cel.MapType(cel.StringType, cel.IntType)),
		cel.Variable("node_ids", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("policy environment: %w", err)
	}

	programs := make([]cel.Program, 0, len(rules))
	for _, rule := range rules {
		ast, iss := env.Compile(rule.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("policy %q: %w", rule.Name, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("policy %q: %w", rule.Name, err)
		}
		programs = append(programs, prg)
	}

	return &PolicyChecker{rules: rules, programs: programs}, nil
}

func (*PolicyChecker) Name() string { return "PolicyChecker" }

func (c *PolicyChecker) Check(g *ir.Graph) Report {
	var issues []Issue

	input := summarize(g)
	for i, rule := range c.rules {
		out, _, err := c.programs[i].Eval(input)
		if err != nil {
			issues = append(issues, Issue{
				Code:    "POLICY_ERROR",
				Message: fmt.Sprintf("Policy %q failed to evaluate: %v", rule.Name, err),
				Status:  StatusAbstain,
				Details: map[string]any{"policy": rule.Name, "error": err.Error()},
			})
			continue
		}
		allowed, ok := out.Value().(bool)
		if !ok {
			issues = append(issues, Issue{
				Code:    "POLICY_ERROR",
				Message: fmt.Sprintf("Policy %q did not evaluate to a boolean", rule.Name),
				Status:  StatusAbstain,
				Details: map[string]any{"policy": rule.Name},
			})
			continue
		}
		if !allowed {
			issues = append(issues, Issue{
				Code:    "POLICY_VIOLATION",
				Message: fmt.Sprintf("Policy %q violated", rule.Name),
				Status:  StatusHardFail,
				Details: map[string]any{"policy": rule.Name, "expr": rule.Expr},
			})
		}
	}

	return reportFor(c.Name(), issues)
}

func summarize(g *ir.Graph) map[string]any {
	nodeTypes := make(map[string]int)
	for _, id := range g.NodeIDs() {
		if node, err := g.GetNode(id); err == nil {
			nodeTypes[string(node.Type)]++
		}
	}
	edgeTypes := make(map[string]int)
	for _, edge := range g.Edges() {
		edgeTypes[string(edge.Type)]++
	}
	return map[string]any{
		"node_count": g.NodeCount(),
		"edge_count": g.EdgeCount(),
		"node_types": nodeTypes,
		"edge_types": edgeTypes,
		"node_ids":   g.NodeIDs(),
	}
}
