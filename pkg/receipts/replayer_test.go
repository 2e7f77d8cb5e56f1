package receipts

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuralogix/core/pkg/checkers"
	"github.com/neuralogix/core/pkg/ir"
	"github.com/neuralogix/core/pkg/ops"
)

// mintChain executes a sequence of add operations against a seeded graph and
// mints the matching receipt chain. It returns the initial graph (before any
// step) and the receipts in order.
func mintChain(t *testing.T, steps int) (*ir.Graph, []Event) {
	t.Helper()

	registry := ops.NewBuiltinRegistry()
	initial := ir.NewGraph()
	_, err := initial.AddNode("a", ir.NodeNumber, 2)
	require.NoError(t, err)
	_, err = initial.AddNode("b", ir.NodeNumber, 3)
	require.NoError(t, err)

	working := initial.Clone()
	prev := GenesisHash
	var events []Event
	for i := 0; i < steps; i++ {
		before, err := working.StateHash()
		require.NoError(t, err)

		inputs := map[string]any{
			"a": "a", "b": "b",
			"result_id": fmt.Sprintf("sum%d", i),
		}
		sig, err := registry.Get("add")
		require.NoError(t, err)
		outputs, err := sig.Apply(working, inputs)
		require.NoError(t, err)

		after, err := working.StateHash()
		require.NoError(t, err)

		ev, err := New(Spec{
			OpName:          "add",
			Inputs:          inputs,
			Outputs:         outputs,
			Status:          checkers.StatusOK,
			GraphHashBefore: before,
			GraphHashAfter:  after,
			PrevReceiptHash: prev,
		}, fixedClock)
		require.NoError(t, err)

		events = append(events, ev)
		prev = ev.ReceiptHash
	}
	return initial, events
}

func TestVerifyChainAcceptsIntactLog(t *testing.T) {
	_, events := mintChain(t, 4)
	r := NewReplayer(RegistryApplier(ops.NewBuiltinRegistry()))
	assert.NoError(t, r.VerifyChain(events))
	assert.NoError(t, r.VerifyChain(nil))
}

func TestVerifyChainDetectsMutatedField(t *testing.T) {
	_, events := mintChain(t, 3)
	events[1].OpName = "forged"

	r := NewReplayer(nil)
	err := r.VerifyChain(events)
	var tamper *TamperError
	require.ErrorAs(t, err, &tamper)
	assert.Equal(t, 1, tamper.Index)
	assert.Equal(t, "receipt_hash", tamper.Check)
}

func TestVerifyChainDetectsReorderedReceipts(t *testing.T) {
	_, events := mintChain(t, 3)
	events[0], events[1] = events[1], events[0]

	r := NewReplayer(nil)
	err := r.VerifyChain(events)
	var tamper *TamperError
	require.ErrorAs(t, err, &tamper)
	assert.Equal(t, 0, tamper.Index)
	assert.Equal(t, "prev_receipt_hash", tamper.Check)
}

func TestVerifyChainDetectsDeletedReceipt(t *testing.T) {
	_, events := mintChain(t, 3)
	truncated := append([]Event{events[0]}, events[2])

	r := NewReplayer(nil)
	err := r.VerifyChain(truncated)
	var tamper *TamperError
	require.ErrorAs(t, err, &tamper)
	assert.Equal(t, 1, tamper.Index)
	assert.Equal(t, "prev_receipt_hash", tamper.Check)
}

func TestReplayReproducesFinalState(t *testing.T) {
	initial, events := mintChain(t, 3)

	r := NewReplayer(RegistryApplier(ops.NewBuiltinRegistry()))
	final, err := r.Replay(events, initial.Clone())
	require.NoError(t, err)

	hash, err := final.StateHash()
	require.NoError(t, err)
	assert.Equal(t, events[2].GraphHashAfter, hash)
	assert.True(t, final.HasNode("sum2"))
}

func TestReplayRejectsWrongInitialState(t *testing.T) {
	initial, events := mintChain(t, 2)

	tainted := initial.Clone()
	_, err := tainted.AddNode("stowaway", ir.NodeNumber, 9)
	require.NoError(t, err)

	r := NewReplayer(RegistryApplier(ops.NewBuiltinRegistry()))
	_, err = r.Replay(events, tainted)
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 0, mismatch.Index)
	assert.Equal(t, "graph_hash_before", mismatch.Field)
}

func TestReplayRejectsNonReproducingReceipt(t *testing.T) {
	initial, events := mintChain(t, 1)

	// A receipt can be internally consistent yet still claim a resulting
	// state the operation never produces.
	forged := events[0]
	forged.GraphHashAfter = "0000000000000000000000000000000000000000000000000000000000000000"
	hash, err := forged.ComputeHash()
	require.NoError(t, err)
	forged.ReceiptHash = hash

	r := NewReplayer(RegistryApplier(ops.NewBuiltinRegistry()))
	_, err = r.Replay([]Event{forged}, initial.Clone())
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "graph_hash_after", mismatch.Field)
}

func TestReplaySkipsNoChangeReceipts(t *testing.T) {
	initial, _ := mintChain(t, 0)
	hash, err := initial.StateHash()
	require.NoError(t, err)

	ev, err := New(Spec{
		OpName:          "unregistered_op",
		Status:          checkers.StatusHardFail,
		GraphHashBefore: hash,
		GraphHashAfter:  hash,
		PrevReceiptHash: GenesisHash,
	}, fixedClock)
	require.NoError(t, err)

	// The op is unknown to the registry; replay must not try to re-execute
	// a step that committed no change.
	r := NewReplayer(RegistryApplier(ops.NewBuiltinRegistry()))
	_, err = r.Replay([]Event{ev}, initial)
	assert.NoError(t, err)
}

func TestReplayFromLedgerRecords(t *testing.T) {
	initial, events := mintChain(t, 2)

	// Round-trip through storage encoding, then replay what was read back.
	ledger, err := NewFileLedger(t.TempDir() + "/chain.jsonl")
	require.NoError(t, err)
	for _, ev := range events {
		require.NoError(t, ledger.Append(context.Background(), ev))
	}
	stored, err := ledger.ReadAll(context.Background())
	require.NoError(t, err)

	r := NewReplayer(RegistryApplier(ops.NewBuiltinRegistry()))
	final, err := r.Replay(stored, initial.Clone())
	require.NoError(t, err)

	hash, err := final.StateHash()
	require.NoError(t, err)
	assert.Equal(t, events[1].GraphHashAfter, hash)
}
