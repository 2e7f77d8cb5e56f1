// Package receipts implements the tamper-evident audit trail: immutable,
// self-hashed receipt events chained by previous-hash, append-only ledgers
// over files and SQL databases, and a replayer that rebuilds graph state from
// receipts alone.
package receipts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/neuralogix/core/pkg/canonicalize"
	"github.com/neuralogix/core/pkg/checkers"
)

// GenesisHash is the previous-hash sentinel for the first receipt in a chain.
const GenesisHash = "genesis"

// Event is one immutable receipt: the complete record of a single engine
// step. The receipt hash is computed over every other field in canonical
// form, so any mutation is detectable.
type Event struct {
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Actor     string `json:"actor"`

	OpName  string         `json:"op_name"`
	Inputs  map[string]any `json:"inputs"`
	Outputs map[string]any `json:"outputs"`

	CheckerReports []checkers.Report `json:"checker_reports"`
	Status         checkers.Status   `json:"status"`

	GraphHashBefore string `json:"graph_hash_before"`
	GraphHashAfter  string `json:"graph_hash_after"`

	PrevReceiptHash string `json:"prev_receipt_hash"`
	ReceiptHash     string `json:"receipt_hash"`

	Notes map[string]any `json:"notes"`
}

// Spec carries the fields the engine supplies when minting a receipt.
type Spec struct {
	OpName          string
	Inputs          map[string]any
	Outputs         map[string]any
	CheckerReports  []checkers.Report
	Status          checkers.Status
	GraphHashBefore string
	GraphHashAfter  string
	PrevReceiptHash string
	Actor           string
	Notes           map[string]any
}

// New mints a receipt with a fresh event ID, the clock's timestamp, and a
// computed receipt hash. clock may be nil for wall time.
func New(spec Spec, clock func() time.Time) (Event, error) {
	if clock == nil {
		clock = time.Now
	}
	actor := spec.Actor
	if actor == "" {
		actor = "system"
	}
	inputs := spec.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}
	outputs := spec.Outputs
	if outputs == nil {
		outputs = map[string]any{}
	}
	notes := spec.Notes
	if notes == nil {
		notes = map[string]any{}
	}

	ev := Event{
		EventID:         uuid.New().String(),
		Timestamp:       clock().UTC().Format(time.RFC3339Nano),
		Actor:           actor,
		OpName:          spec.OpName,
		Inputs:          inputs,
		Outputs:         outputs,
		CheckerReports:  spec.CheckerReports,
		Status:          spec.Status,
		GraphHashBefore: spec.GraphHashBefore,
		GraphHashAfter:  spec.GraphHashAfter,
		PrevReceiptHash: spec.PrevReceiptHash,
		Notes:           notes,
	}

	hash, err := ev.ComputeHash()
	if err != nil {
		return Event{}, err
	}
	ev.ReceiptHash = hash
	return ev, nil
}

// ComputeHash returns the SHA-256 hex digest of the receipt's canonical JSON
// with the receipt_hash field removed. It must be recomputable from a stored
// record.
func (e Event) ComputeHash() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("receipt marshal: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("receipt decode: %w", err)
	}
	delete(doc, "receipt_hash")
	return canonicalize.CanonicalHash(doc)
}

// Verify recomputes the receipt hash and reports whether it matches the
// stored value.
func (e Event) Verify() error {
	computed, err := e.ComputeHash()
	if err != nil {
		return err
	}
	if computed != e.ReceiptHash {
		return fmt.Errorf("receipt %s: stored hash %q, computed %q: %w",
			e.EventID, e.ReceiptHash, computed, ErrHashMismatch)
	}
	return nil
}

// Canonical returns the receipt's canonical JSON record, the exact bytes a
// ledger persists.
func (e Event) Canonical() ([]byte, error) {
	return canonicalize.JCS(e)
}
