package ops

import (
	"encoding/json"
	"fmt"

	"github.com/neuralogix/core/pkg/ir"
)

// NewBuiltinRegistry returns a registry with the built-in operations:
// binary arithmetic (add, greater_than) and two-hop relation derivation
// (derive_grandparent).
func NewBuiltinRegistry() *Registry {
	r := NewRegistry()
	r.Register(Signature{
		Name:        "add",
		InputTypes:  []ir.NodeType{ir.NodeNumber, ir.NodeNumber},
		OutputType:  ir.NodeNumber,
		Apply:       applyAdd,
		Description: "Add two numbers: a + b -> sum",
	})
	r.Register(Signature{
		Name:        "greater_than",
		InputTypes:  []ir.NodeType{ir.NodeNumber, ir.NodeNumber},
		OutputType:  ir.NodeBoolean,
		Apply:       applyGreaterThan,
		Description: "Compare numbers: a > b -> boolean",
	})
	r.Register(Signature{
		Name:        "derive_grandparent",
		InputTypes:  []ir.NodeType{ir.NodePerson, ir.NodePerson},
		OutputType:  ir.NodeRelation,
		Apply:       applyDeriveGrandparent,
		Description: "Derive grandparent relation from parent_of chain",
	})
	return r
}

func stringInput(op string, inputs map[string]any, key string) (string, error) {
	v, ok := inputs[key]
	if !ok {
		return "", invalidInput(op, "missing input %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", invalidInput(op, "input %q must be a node ID string", key)
	}
	return s, nil
}

func numberNode(op string, g *ir.Graph, id string) (ir.Node, float64, error) {
	node, err := g.GetNode(id)
	if err != nil {
		return ir.Node{}, 0, &InputError{Op: op, Err: err}
	}
	if node.Type != ir.NodeNumber {
		return ir.Node{}, 0, invalidInput(op, "requires NUMBER input, node %q is %s", id, node.Type)
	}
	v, ok := numericValue(node.Value)
	if !ok {
		return ir.Node{}, 0, invalidInput(op, "node %q has no numeric value", id)
	}
	return node, v, nil
}

func numericValue(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func isInt(v any) bool {
	switch t := v.(type) {
	case int, int64:
		return true
	case float64:
		return t == float64(int64(t))
	default:
		return false
	}
}

func applyAdd(g *ir.Graph, inputs map[string]any) (map[string]any, error) {
	const op = "add"

	aID, err := stringInput(op, inputs, "a")
	if err != nil {
		return nil, err
	}
	bID, err := stringInput(op, inputs, "b")
	if err != nil {
		return nil, err
	}
	resultID := fmt.Sprintf("add_%s_%s", aID, bID)
	if v, ok := inputs["result_id"].(string); ok {
		resultID = v
	}

	aNode, a, err := numberNode(op, g, aID)
	if err != nil {
		return nil, err
	}
	bNode, b, err := numberNode(op, g, bID)
	if err != nil {
		return nil, err
	}

	var sum any = a + b
	if isInt(aNode.Value) && isInt(bNode.Value) {
		sum = int(a) + int(b)
	}

	if !g.HasNode(resultID) {
		if _, err := g.AddNode(resultID, ir.NodeNumber, sum); err != nil {
			return nil, err
		}
	}
	if _, err := g.AddEdge(ir.EdgeAdd, aID, bID, map[string]any{"result": resultID}); err != nil {
		return nil, err
	}

	return map[string]any{"result": resultID}, nil
}

func applyGreaterThan(g *ir.Graph, inputs map[string]any) (map[string]any, error) {
	const op = "greater_than"

	aID, err := stringInput(op, inputs, "a")
	if err != nil {
		return nil, err
	}
	bID, err := stringInput(op, inputs, "b")
	if err != nil {
		return nil, err
	}
	resultID := fmt.Sprintf("gt_%s_%s", aID, bID)
	if v, ok := inputs["result_id"].(string); ok {
		resultID = v
	}

	_, a, err := numberNode(op, g, aID)
	if err != nil {
		return nil, err
	}
	_, b, err := numberNode(op, g, bID)
	if err != nil {
		return nil, err
	}

	if !g.HasNode(resultID) {
		if _, err := g.AddNode(resultID, ir.NodeBoolean, a > b); err != nil {
			return nil, err
		}
	}
	if _, err := g.AddEdge(ir.EdgeGreaterThan, aID, bID, map[string]any{"result": resultID}); err != nil {
		return nil, err
	}

	return map[string]any{"result": resultID}, nil
}

// applyDeriveGrandparent finds grandparent -> X -> grandchild over parent_of
// edges by linear scan with first-match tie-break, and records the derived
// relation as a new node.
func applyDeriveGrandparent(g *ir.Graph, inputs map[string]any) (map[string]any, error) {
	const op = "derive_grandparent"

	gpID, err := stringInput(op, inputs, "grandparent")
	if err != nil {
		return nil, err
	}
	gcID, err := stringInput(op, inputs, "grandchild")
	if err != nil {
		return nil, err
	}
	resultID := fmt.Sprintf("grandparent_of_%s_%s", gpID, gcID)
	if v, ok := inputs["result_id"].(string); ok {
		resultID = v
	}

	for _, id := range []string{gpID, gcID} {
		node, err := g.GetNode(id)
		if err != nil {
			return nil, &InputError{Op: op, Err: err}
		}
		if node.Type != ir.NodePerson {
			return nil, invalidInput(op, "requires PERSON inputs, node %q is %s", id, node.Type)
		}
	}

	parentID := ""
	for _, edge := range g.FindEdges(ir.EdgeFilter{Type: ir.EdgeParentOf, Source: gpID}) {
		candidate := edge.Target
		if len(g.FindEdges(ir.EdgeFilter{Type: ir.EdgeParentOf, Source: candidate, Target: gcID})) > 0 {
			parentID = candidate
			break
		}
	}
	if parentID == "" {
		return nil, invalidInput(op, "no parent_of chain found: %s -> X -> %s", gpID, gcID)
	}

	if !g.HasNode(resultID) {
		value := map[string]any{
			"type":        "grandparent_of",
			"subject":     gpID,
			"object":      gcID,
			"derived_via": parentID,
		}
		if _, err := g.AddNode(resultID, ir.NodeRelation, value); err != nil {
			return nil, err
		}
	}

	return map[string]any{"result": resultID, "intermediate": parentID}, nil
}
