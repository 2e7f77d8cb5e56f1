package receipts

import (
	"fmt"

	"github.com/neuralogix/core/pkg/ir"
	"github.com/neuralogix/core/pkg/ops"
)

// TamperError reports a receipt whose stored bytes have been altered: the
// chain link or self-hash no longer verifies.
type TamperError struct {
	Index   int
	EventID string
	Check   string
	Detail  string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("tamper detected at receipt %d (%s): %s: %s",
		e.Index, e.EventID, e.Check, e.Detail)
}

// MismatchError reports an intact chain whose receipts do not reproduce the
// recorded graph states: the log verifies but replay diverges.
type MismatchError struct {
	Index   int
	EventID string
	Field   string
	Want    string
	Got     string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("replay mismatch at receipt %d (%s): %s: want %s, got %s",
		e.Index, e.EventID, e.Field, e.Want, e.Got)
}

// ApplyFunc re-executes one receipt's operation against the graph. It is
// only invoked for receipts whose recorded step mutated state.
type ApplyFunc func(ev Event, g *ir.Graph) error

// RegistryApplier re-executes receipts through an operation registry, the
// standard harness for replaying engine ledgers.
func RegistryApplier(registry *ops.Registry) ApplyFunc {
	return func(ev Event, g *ir.Graph) error {
		sig, err := registry.Get(ev.OpName)
		if err != nil {
			return err
		}
		_, err = sig.Apply(g, ev.Inputs)
		return err
	}
}

// Replayer verifies receipt chains and rebuilds graph state by re-executing
// recorded operations.
type Replayer struct {
	apply ApplyFunc
}

// NewReplayer builds a replayer around an apply hook.
func NewReplayer(apply ApplyFunc) *Replayer {
	return &Replayer{apply: apply}
}

// VerifyChain checks every receipt's chain linkage and self-hash without
// touching any graph. It distinguishes log alteration (TamperError) from
// everything else.
func (r *Replayer) VerifyChain(events []Event) error {
	prev := GenesisHash
	for i, ev := range events {
		if ev.PrevReceiptHash != prev {
			return &TamperError{
				Index:   i,
				EventID: ev.EventID,
				Check:   "prev_receipt_hash",
				Detail:  fmt.Sprintf("want %s, got %s", prev, ev.PrevReceiptHash),
			}
		}
		computed, err := ev.ComputeHash()
		if err != nil {
			return fmt.Errorf("receipt %d: %w", i, err)
		}
		if computed != ev.ReceiptHash {
			return &TamperError{
				Index:   i,
				EventID: ev.EventID,
				Check:   "receipt_hash",
				Detail:  fmt.Sprintf("stored %s, computed %s", ev.ReceiptHash, computed),
			}
		}
		prev = ev.ReceiptHash
	}
	return nil
}

// Replay verifies the chain, then re-executes every state-changing receipt
// against initial, checking the recorded before and after hashes at each
// step. It returns the final graph, which is mutated in place.
func (r *Replayer) Replay(events []Event, initial *ir.Graph) (*ir.Graph, error) {
	if err := r.VerifyChain(events); err != nil {
		return nil, err
	}

	g := initial
	for i, ev := range events {
		hash, err := g.StateHash()
		if err != nil {
			return nil, fmt.Errorf("receipt %d: state hash: %w", i, err)
		}
		if hash != ev.GraphHashBefore {
			return nil, &MismatchError{
				Index:   i,
				EventID: ev.EventID,
				Field:   "graph_hash_before",
				Want:    ev.GraphHashBefore,
				Got:     hash,
			}
		}

		// A step that recorded identical before and after hashes did not
		// commit a mutation; re-executing it would double-apply.
		if ev.GraphHashAfter != ev.GraphHashBefore {
			if err := r.apply(ev, g); err != nil {
				return nil, fmt.Errorf("receipt %d (%s): re-execute %s: %w",
					i, ev.EventID, ev.OpName, err)
			}
		}

		hash, err = g.StateHash()
		if err != nil {
			return nil, fmt.Errorf("receipt %d: state hash: %w", i, err)
		}
		if hash != ev.GraphHashAfter {
			return nil, &MismatchError{
				Index:   i,
				EventID: ev.EventID,
				Field:   "graph_hash_after",
				Want:    ev.GraphHashAfter,
				Got:     hash,
			}
		}
	}
	return g, nil
}
