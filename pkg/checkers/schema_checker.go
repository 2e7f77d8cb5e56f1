package checkers

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/neuralogix/core/pkg/ir"
)

// SchemaChecker validates node values against per-type JSON Schemas
// (Draft 2020-12). Node types without a registered schema are ignored.
type SchemaChecker struct {
	schemas  map[ir.NodeType]*jsonschema.Schema
	severity Status
}

// NewSchemaChecker compiles the given schema documents. Violations report
// with the given severity; SOFT_FAIL is the conventional choice since value
// shape problems are recoverable, unlike structural type errors.
func NewSchemaChecker(nodeSchemas map[ir.NodeType]string, severity Status) (*SchemaChecker, error) {
	if severity == "" {
		severity = StatusSoftFail
	}
	compiled := make(map[ir.NodeType]*jsonschema.Schema, len(nodeSchemas))
	for nodeType, doc := range nodeSchemas {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := fmt.Sprintf("https://neuralogix.schemas.local/nodes/%s.schema.json", nodeType)
		if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("schema for %s failed to load: %w", nodeType, err)
		}
		schema, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("schema for %s failed to compile: %w", nodeType, err)
		}
		compiled[nodeType] = schema
	}
	return &SchemaChecker{schemas: compiled, severity: severity}, nil
}

func (*SchemaChecker) Name() string { return "SchemaChecker" }

func (c *SchemaChecker) Check(g *ir.Graph) Report {
	var issues []Issue

	for _, id := range g.NodeIDs() {
		node, err := g.GetNode(id)
		if err != nil {
			continue
		}
		schema, ok := c.schemas[node.Type]
		if !ok {
			continue
		}
		if err := schema.Validate(node.Value); err != nil {
			issues = append(issues, Issue{
				Code:    "SCHEMA_VIOLATION",
				Message: fmt.Sprintf("Node %q value does not match the %s schema: %v", id, node.Type, err),
				Status:  c.severity,
				NodeIDs: []string{id},
				Details: map[string]any{
					"node_type": string(node.Type),
					"violation": err.Error(),
				},
			})
		}
	}

	return reportFor(c.Name(), issues)
}
