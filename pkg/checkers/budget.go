package checkers

import (
	"encoding/json"
	"fmt"

	"github.com/neuralogix/core/pkg/ir"
)

// ErrorMetric is the tagged diagnostics shape a codec attaches to a node
// value at creation time. Values implementing it are the preferred source of
// the budget error; map shapes are supported as a fallback for values that
// went through serialization.
type ErrorMetric interface {
	ErrorMetric() (float64, bool)
}

// BudgetChecker enforces per-node error budgets.
//
// Threshold policy, with τ the threshold for the node's type:
//
//	error <= τ       => OK
//	τ < error <= 2τ  => SOFT_FAIL
//	error > 2τ       => HARD_FAIL
type BudgetChecker struct {
	thresholds map[string]float64
}

// NewBudgetChecker creates a BudgetChecker. thresholds maps a node type name
// or "default" to its τ value; a missing "default" falls back to 1.0.
func NewBudgetChecker(thresholds map[string]float64) *BudgetChecker {
	if thresholds == nil {
		thresholds = map[string]float64{"default": 1.0}
	}
	return &BudgetChecker{thresholds: thresholds}
}

func (*BudgetChecker) Name() string { return "BudgetChecker" }

func (c *BudgetChecker) Check(g *ir.Graph) Report {
	var issues []Issue

	for _, id := range g.NodeIDs() {
		node, err := g.GetNode(id)
		if err != nil {
			continue
		}
		errVal, ok := extractError(node.Value)
		if !ok {
			continue
		}

		tau := c.threshold(node.Type)

		switch {
		case errVal > 2*tau:
			issues = append(issues, Issue{
				Code:    "BUDGET_EXCEEDED_HARD",
				Message: fmt.Sprintf("Node %q error %.4f > 2τ (%.4f)", id, errVal, 2*tau),
				Status:  StatusHardFail,
				NodeIDs: []string{id},
				Details: map[string]any{"error": errVal, "tau": tau},
			})
		case errVal > tau:
			issues = append(issues, Issue{
				Code:    "BUDGET_EXCEEDED_SOFT",
				Message: fmt.Sprintf("Node %q error %.4f > τ (%.4f)", id, errVal, tau),
				Status:  StatusSoftFail,
				NodeIDs: []string{id},
				Details: map[string]any{"error": errVal, "tau": tau},
			})
		}
	}

	return reportFor(c.Name(), issues)
}

func (c *BudgetChecker) threshold(nodeType ir.NodeType) float64 {
	if tau, ok := c.thresholds[string(nodeType)]; ok {
		return tau
	}
	if tau, ok := c.thresholds["default"]; ok {
		return tau
	}
	return 1.0
}

// extractError pulls the budget error metric out of a node value. Priority:
// the tagged ErrorMetric shape, then a map with metadata.quantization_error
// or metadata.residual_norm, then a top-level "error" key.
func extractError(value any) (float64, bool) {
	if m, ok := value.(ErrorMetric); ok {
		return m.ErrorMetric()
	}

	dict, ok := value.(map[string]any)
	if !ok {
		return 0, false
	}

	if meta, ok := dict["metadata"].(map[string]any); ok {
		if v, ok := toFloat(meta["quantization_error"]); ok {
			return v, true
		}
		if v, ok := toFloat(meta["residual_norm"]); ok {
			return v, true
		}
	}
	if v, ok := toFloat(dict["error"]); ok {
		return v, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
