// Package ops holds the operation registry: named, pure graph-transform
// functions with declared type signatures. Operations may only add nodes and
// edges, never remove or rewrite existing ones, and must reject invalid
// inputs before mutating anything.
package ops

import (
	"errors"
	"fmt"
	"sort"

	"github.com/neuralogix/core/pkg/ir"
)

// ErrUnknownOperation is returned when resolving a name with no registered
// operation.
var ErrUnknownOperation = errors.New("unknown operation")

// InputError marks an operation failure caused by invalid inputs (missing
// node, wrong type, absent prerequisite). The engine converts it into a
// terminal HARD_FAIL step outcome; any other error from an apply function is
// treated as an infrastructure failure and propagated.
type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: invalid input: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func invalidInput(op, format string, args ...any) error {
	return &InputError{Op: op, Err: fmt.Errorf(format, args...)}
}

// ApplyFunc applies an operation to the graph, returning its outputs. It must
// be deterministic and side effects must be limited to pure additions.
type ApplyFunc func(g *ir.Graph, inputs map[string]any) (map[string]any, error)

// Signature declares an operation: its expected input and output node types
// (documentation-level, not generically enforced) and the apply function.
type Signature struct {
	Name        string
	InputTypes  []ir.NodeType
	OutputType  ir.NodeType
	Apply       ApplyFunc
	Description string
}

// Registry maps operation names to signatures. Register overwrites by name.
type Registry struct {
	ops map[string]Signature
}

// NewRegistry creates an empty registry. Collaborators an operation needs are
// closed over at registration time; the registry itself holds no shared
// state.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Signature)}
}

// Register adds or replaces an operation by name.
func (r *Registry) Register(sig Signature) {
	r.ops[sig.Name] = sig
}

// Get resolves an operation by name.
func (r *Registry) Get(name string) (Signature, error) {
	sig, ok := r.ops[name]
	if !ok {
		return Signature{}, fmt.Errorf("%q: %w", name, ErrUnknownOperation)
	}
	return sig, nil
}

// List returns all registered operation names, sorted.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
