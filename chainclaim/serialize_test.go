package chainclaim

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/chanclaim/input"
)

func randKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func TestMalleableJusticeRoundTrip(t *testing.T) {
	priv := randKey(t)
	op := input.NewOutpoint(chainhash.Hash{1, 2, 3}, 0)

	out := &RevokedOutput{
		PerCommitmentPoint:          priv.PubKey(),
		RemoteDelayedPaymentBaseKey: randKey(t).PubKey(),
		RemoteHTLCBaseKey:           randKey(t).PubKey(),
		PerCommitmentKey:            priv,
		InputDescriptor:             input.RevokedOutput,
		Amount:                      50_000,
		OnRemoteTxCSV:               144,
	}

	pkg, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{op: out})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pkg.Encode(&buf))

	decoded, err := Decode(&buf)
	require.NoError(t, err)

	require.Equal(t, pkg.Kind, decoded.Kind)
	require.ElementsMatch(t, pkg.Outpoints(), decoded.Outpoints())
	require.Equal(t, pkg.Amounts(), decoded.Amounts())

	decOut := decoded.Malleable[op].Revoked
	require.Equal(t, out.InputDescriptor, decOut.InputDescriptor)
	require.Equal(t, out.Amount, decOut.Amount)
	require.Equal(t, out.OnRemoteTxCSV, decOut.OnRemoteTxCSV)
	require.True(t, out.PerCommitmentPoint.IsEqual(decOut.PerCommitmentPoint))
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte{4}))
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestDecodeCapsMalleableEntryPrealloc(t *testing.T) {
	// A hostile count far larger than the cap should not panic or try to
	// allocate a map of that size; it should simply fail reading the
	// (absent) entries.
	var buf bytes.Buffer
	require.NoError(t, writeUint8(&buf, uint8(KindMalleableJustice)))
	require.NoError(t, writeUint64(&buf, 1<<40))

	_, err := Decode(&buf)
	require.Error(t, err)
}

func TestMergeRequiresSameVariant(t *testing.T) {
	op1 := input.NewOutpoint(chainhash.Hash{1}, 0)
	op2 := input.NewOutpoint(chainhash.Hash{2}, 0)

	justice, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op1: {Amount: 1, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	remote, err := NewRemoteHTLCPackage(map[input.Outpoint]*RemoteHTLCOutput{
		op2: {HTLC: input.HTLCOutputInCommitment{Offered: true}},
	})
	require.NoError(t, err)

	require.Panics(t, func() { justice.Merge(remote) })
}

func TestMergeUnionsOutpointsAndSumsAmounts(t *testing.T) {
	op1 := input.NewOutpoint(chainhash.Hash{1}, 0)
	op2 := input.NewOutpoint(chainhash.Hash{2}, 0)

	p, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op1: {Amount: 100, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	q, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op2: {Amount: 200, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	p.Merge(q)

	require.ElementsMatch(t, []input.Outpoint{op1, op2}, p.Outpoints())
	require.EqualValues(t, 300, p.Amounts())
}

func TestSplitRemovesEntryAndReturnsSingleton(t *testing.T) {
	op1 := input.NewOutpoint(chainhash.Hash{1}, 0)
	op2 := input.NewOutpoint(chainhash.Hash{2}, 0)

	p, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op1: {Amount: 100, InputDescriptor: input.RevokedOutput},
		op2: {Amount: 200, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	split := p.Split(op1)

	require.Equal(t, []input.Outpoint{op1}, split.Outpoints())
	require.Equal(t, []input.Outpoint{op2}, p.Outpoints())
}

func TestSplitOnLocalPanics(t *testing.T) {
	op := input.NewOutpoint(chainhash.Hash{1}, 0)
	pkg := NewLocalHTLCPackage(op, &LocalHTLCOutput{Amount: 1})

	require.Panics(t, func() { pkg.Split(op) })
}
