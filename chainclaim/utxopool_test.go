package chainclaim

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/chanclaim/input"
)

func noopSigner(tx *wire.MsgTx, inputIndex int) error { return nil }

func TestAllocateUTXOPicksSmallestCoveringOutput(t *testing.T) {
	pool := NewReservePool()

	small := input.NewOutpoint(chainhash.Hash{1}, 0)
	big := input.NewOutpoint(chainhash.Hash{2}, 0)
	pool.AddUTXO(small, &wire.TxOut{Value: 20_000}, noopSigner)
	pool.AddUTXO(big, &wire.TxOut{Value: 100_000}, noopSigner)

	op, out, ok, err := pool.AllocateUTXO(10_000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, small, op)
	require.EqualValues(t, 20_000, out.Value)
}

func TestAllocateUTXOSkipsDustRemainder(t *testing.T) {
	pool := NewReservePool()

	// requiredFee leaves a remainder just under dustLimit: skip it and
	// fall through to the next output that either covers it exactly or
	// leaves a spendable remainder.
	dustyRemainder := input.NewOutpoint(chainhash.Hash{1}, 0)
	clean := input.NewOutpoint(chainhash.Hash{2}, 0)

	requiredFee := int64(10_000)
	pool.AddUTXO(dustyRemainder, &wire.TxOut{Value: requiredFee + int64(dustLimit) - 1}, noopSigner)
	pool.AddUTXO(clean, &wire.TxOut{Value: requiredFee}, noopSigner)

	op, _, ok, err := pool.AllocateUTXO(btcutil.Amount(requiredFee))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, clean, op)
}

func TestAllocateUTXONoneFree(t *testing.T) {
	pool := NewReservePool()
	pool.AddUTXO(input.NewOutpoint(chainhash.Hash{1}, 0), &wire.TxOut{Value: 100}, noopSigner)

	_, _, ok, err := pool.AllocateUTXO(1_000)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFreeUTXOReturnsOutputToFreeList(t *testing.T) {
	pool := NewReservePool()
	op := input.NewOutpoint(chainhash.Hash{1}, 0)
	pool.AddUTXO(op, &wire.TxOut{Value: 50_000}, noopSigner)

	gotOp, _, ok, err := pool.AllocateUTXO(10_000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op, gotOp)

	_, _, ok, err = pool.AllocateUTXO(10_000)
	require.NoError(t, err)
	require.False(t, ok, "the only free utxo is already allocated")

	pool.FreeUTXO(op)

	gotOp, _, ok, err = pool.AllocateUTXO(10_000)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, op, gotOp)
}

func TestSignUTXODelegatesToAllocatedEntry(t *testing.T) {
	pool := NewReservePool()
	op := input.NewOutpoint(chainhash.Hash{1}, 0)

	var signed bool
	pool.AddUTXO(op, &wire.TxOut{Value: 50_000}, func(tx *wire.MsgTx, inputIndex int) error {
		signed = true
		return nil
	})

	_, _, ok, err := pool.AllocateUTXO(10_000)
	require.NoError(t, err)
	require.True(t, ok)

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: op.Wire()})

	require.NoError(t, pool.SignUTXO(tx, 0))
	require.True(t, signed)
}

func TestSignUTXOFailsForUnallocatedInput(t *testing.T) {
	pool := NewReservePool()

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(&wire.TxIn{PreviousOutPoint: input.NewOutpoint(chainhash.Hash{9}, 0).Wire()})

	err := pool.SignUTXO(tx, 0)
	require.Error(t, err)
}
