package ir

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/unicode/norm"

	"github.com/neuralogix/core/pkg/canonicalize"
)

// ErrDuplicateNode is returned when adding a node whose ID already exists.
var ErrDuplicateNode = errors.New("duplicate node")

// ErrNodeNotFound is returned when a referenced node does not exist.
var ErrNodeNotFound = errors.New("node not found")

// ErrSchemaVersion is returned when a document carries an unsupported schema version.
var ErrSchemaVersion = errors.New("unsupported schema version")

// Node is a single typed vertex. Nodes are append-only: the core contract has
// no update or delete.
type Node struct {
	ID    string   `json:"node_id"`
	Type  NodeType `json:"node_type"`
	Value any      `json:"value"`
}

// Edge is a typed, directed connection between two existing nodes. Multiple
// edges between the same pair are permitted; there is no deduplication.
type Edge struct {
	Type     EdgeType       `json:"edge_type"`
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Metadata map[string]any `json:"metadata"`
}

// EdgeFilter selects edges in FindEdges. Zero-value fields match everything.
type EdgeFilter struct {
	Type   EdgeType
	Source string
	Target string
}

// Document is the serialized form of a graph: nodes sorted by ID, edges
// sorted by (type, source, target), tagged with the schema version.
type Document struct {
	SchemaVersion string `json:"schema_version"`
	Nodes         []Node `json:"nodes"`
	Edges         []Edge `json:"edges"`
}

// Graph is the in-memory typed graph store.
//
// The graph assumes a single writer: the engine executes one step at a time
// and provides no internal locking.
type Graph struct {
	nodes map[string]Node
	edges []Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[string]Node)}
}

// AddNode inserts a new node. The ID is NFC-normalized so visually identical
// IDs cannot produce divergent state hashes.
func (g *Graph) AddNode(id string, nodeType NodeType, value any) (Node, error) {
	id = norm.NFC.String(id)
	if _, exists := g.nodes[id]; exists {
		return Node{}, fmt.Errorf("node %q: %w", id, ErrDuplicateNode)
	}
	node := Node{ID: id, Type: nodeType, Value: value}
	g.nodes[id] = node
	return node, nil
}

// GetNode returns the node with the given ID.
func (g *Graph) GetNode(id string) (Node, error) {
	node, ok := g.nodes[norm.NFC.String(id)]
	if !ok {
		return Node{}, fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	return node, nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[norm.NFC.String(id)]
	return ok
}

// AddEdge appends a new edge. Both endpoints must already exist; this is the
// only structural invariant the store enforces itself.
func (g *Graph) AddEdge(edgeType EdgeType, source, target string, metadata map[string]any) (Edge, error) {
	source = norm.NFC.String(source)
	target = norm.NFC.String(target)
	if _, ok := g.nodes[source]; !ok {
		return Edge{}, fmt.Errorf("edge source %q: %w", source, ErrNodeNotFound)
	}
	if _, ok := g.nodes[target]; !ok {
		return Edge{}, fmt.Errorf("edge target %q: %w", target, ErrNodeNotFound)
	}
	edge := Edge{Type: edgeType, Source: source, Target: target, Metadata: metadata}
	g.edges = append(g.edges, edge)
	return edge, nil
}

// FindEdges returns edges matching the filter, in insertion order.
func (g *Graph) FindEdges(filter EdgeFilter) []Edge {
	var result []Edge
	for _, e := range g.edges {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Source != "" && e.Source != filter.Source {
			continue
		}
		if filter.Target != "" && e.Target != filter.Target {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	result := make([]Edge, len(g.edges))
	copy(result, g.edges)
	return result
}

// NodeIDs returns all node IDs sorted bytewise.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Document returns the canonical document form: nodes sorted by ID, edges
// sorted by (type, source, target), independent of insertion order.
func (g *Graph) Document() Document {
	nodes := make([]Node, 0, len(g.nodes))
	for _, id := range g.NodeIDs() {
		nodes = append(nodes, g.nodes[id])
	}

	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})

	return Document{
		SchemaVersion: SchemaVersion,
		Nodes:         nodes,
		Edges:         edges,
	}
}

// StateHash computes the SHA-256 hex digest of the canonical document.
// Graphs with identical node/edge sets hash identically regardless of
// insertion order; any single-field change changes the hash.
func (g *Graph) StateHash() (string, error) {
	return canonicalize.CanonicalHash(g.Document())
}

// Equal reports structural equality: two graphs are equal iff their state
// hashes match.
func (g *Graph) Equal(other *Graph) bool {
	if other == nil {
		return false
	}
	h1, err1 := g.StateHash()
	h2, err2 := other.StateHash()
	if err1 != nil || err2 != nil {
		return false
	}
	return h1 == h2
}

// FromDocument rebuilds a graph from its document form, re-validating every
// node and edge through the store invariants.
func FromDocument(doc Document) (*Graph, error) {
	if err := checkSchemaVersion(doc.SchemaVersion); err != nil {
		return nil, err
	}
	g := NewGraph()
	for _, n := range doc.Nodes {
		if _, err := g.AddNode(n.ID, n.Type, n.Value); err != nil {
			return nil, err
		}
	}
	for _, e := range doc.Edges {
		if _, err := g.AddEdge(e.Type, e.Source, e.Target, e.Metadata); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func checkSchemaVersion(version string) error {
	current := semver.MustParse(SchemaVersion)
	parsed, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("schema version %q: %w", version, ErrSchemaVersion)
	}
	// No cross-version hash migration exists; require an exact match.
	if !parsed.Equal(current) {
		return fmt.Errorf("schema version %q (want %q): %w", version, SchemaVersion, ErrSchemaVersion)
	}
	return nil
}

// Clone returns a full deep copy, the engine's pre-step snapshot for rollback.
// Node values must be plain JSON data (maps, slices, scalars) to be copied
// deeply.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		nodes: make(map[string]Node, len(g.nodes)),
		edges: make([]Edge, len(g.edges)),
	}
	for id, n := range g.nodes {
		n.Value = copyValue(n.Value)
		clone.nodes[id] = n
	}
	for i, e := range g.edges {
		if e.Metadata != nil {
			e.Metadata = copyValue(e.Metadata).(map[string]any)
		}
		clone.edges[i] = e
	}
	return clone
}

// Restore replaces the graph's contents with those of the snapshot.
func (g *Graph) Restore(snapshot *Graph) {
	g.nodes = snapshot.nodes
	g.edges = snapshot.edges
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = copyValue(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = copyValue(val)
		}
		return s
	default:
		return v
	}
}

func (g *Graph) String() string {
	hash, err := g.StateHash()
	if err != nil {
		hash = "????????"
	}
	return fmt.Sprintf("Graph(nodes=%d, edges=%d, hash=%.8s...)", len(g.nodes), len(g.edges), hash)
}
