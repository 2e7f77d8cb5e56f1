package receipts

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrChainBroken indicates an appended receipt does not link to the
	// ledger's tail hash.
	ErrChainBroken = errors.New("receipt chain broken")
	// ErrHashMismatch indicates a receipt's stored hash does not match its
	// recomputed canonical hash.
	ErrHashMismatch = errors.New("receipt hash mismatch")
)

// Ledger is an append-only receipt store. Appends validate both the hash
// chain and the receipt's self-hash before anything is persisted; a failed
// append writes nothing.
type Ledger interface {
	// Append persists a receipt after validating chain linkage and
	// self-hash integrity.
	Append(ctx context.Context, ev Event) error
	// ReadAll returns every persisted receipt in append order.
	ReadAll(ctx context.Context) ([]Event, error)
	// TailHash returns the hash the next appended receipt must link to,
	// GenesisHash when the ledger is empty.
	TailHash() string
}

// validateAppend runs the shared admission checks for any ledger backend.
func validateAppend(ev Event, tail string) error {
	if ev.PrevReceiptHash != tail {
		return fmt.Errorf("prev_receipt_hash %q does not match tail %q: %w",
			ev.PrevReceiptHash, tail, ErrChainBroken)
	}
	return ev.Verify()
}
