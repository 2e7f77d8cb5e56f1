// Package ir implements the typed graph intermediate representation: a
// content-addressed, append-only graph whose canonical serialization is
// insertion-order independent. The state hash over that canonical form is the
// unit of equality for the whole engine.
package ir

// SchemaVersion tags every canonical graph document. Hashes are only
// comparable between graphs serialized under the same schema version.
const SchemaVersion = "0.0.0"

// NodeType enumerates the only legal node kinds.
type NodeType string

const (
	NodeNumber    NodeType = "Number"
	NodePerson    NodeType = "Person"
	NodeRelation  NodeType = "Relation"
	NodeOperation NodeType = "Operation"
	NodeBoolean   NodeType = "Boolean"

	// Verification pilot types
	NodeSpec            NodeType = "Spec"
	NodeCode            NodeType = "Code"
	NodeTest            NodeType = "Test"
	NodeExecutionResult NodeType = "ExecutionResult"

	// Attribute pilot types
	NodeEntity   NodeType = "Entity"
	NodeValue    NodeType = "Value"
	NodeValueSet NodeType = "ValueSet"
)

// EdgeType enumerates the only legal edge kinds.
type EdgeType string

const (
	EdgeParentOf    EdgeType = "parent_of"
	EdgeSpouseOf    EdgeType = "spouse_of"
	EdgeAdd         EdgeType = "add"
	EdgeGreaterThan EdgeType = "greater_than"

	// Verification pilot types
	EdgeImplements  EdgeType = "implements"
	EdgeVerifies    EdgeType = "verifies"
	EdgeResultsFrom EdgeType = "results_from"

	// Attribute pilot types
	EdgeHasAttribute EdgeType = "has_attribute"
	EdgeContains     EdgeType = "contains"
)

var validNodeTypes = map[NodeType]bool{
	NodeNumber:          true,
	NodePerson:          true,
	NodeRelation:        true,
	NodeOperation:       true,
	NodeBoolean:         true,
	NodeSpec:            true,
	NodeCode:            true,
	NodeTest:            true,
	NodeExecutionResult: true,
	NodeEntity:          true,
	NodeValue:           true,
	NodeValueSet:        true,
}

var validEdgeTypes = map[EdgeType]bool{
	EdgeParentOf:     true,
	EdgeSpouseOf:     true,
	EdgeAdd:          true,
	EdgeGreaterThan:  true,
	EdgeImplements:   true,
	EdgeVerifies:     true,
	EdgeResultsFrom:  true,
	EdgeHasAttribute: true,
	EdgeContains:     true,
}

// ValidNodeType reports whether t belongs to the closed node type set.
func ValidNodeType(t NodeType) bool { return validNodeTypes[t] }

// ValidEdgeType reports whether t belongs to the closed edge type set.
func ValidEdgeType(t EdgeType) bool { return validEdgeTypes[t] }
