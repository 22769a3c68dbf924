package chainclaim

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"

	"github.com/lightninglabs/chanclaim/input"
)

func TestMergeIntoUninitializedCopiesWholesale(t *testing.T) {
	op := input.NewOutpoint(chainhash.Hash{1}, 0)
	content, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op: {Amount: 500, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	timer := uint32(42)
	other := &OnchainRequest{
		Aggregation:      false,
		BumpStrategy:     BumpCPFP,
		FeeratePrevious:  7000,
		HeightTimer:      &timer,
		AbsoluteTimelock: 900_000,
		HeightOriginal:   800_000,
		Content:          content,
	}

	req := NewOnchainRequest()
	require.NoError(t, req.Merge(other))

	require.Equal(t, other.HeightOriginal, req.HeightOriginal)
	require.Equal(t, other.Content, req.Content)
	require.Equal(t, other.AbsoluteTimelock, req.AbsoluteTimelock)

	// Resolution of the open question: aggregation, bump strategy,
	// feerate_previous, and height_timer are also adopted wholesale since
	// the uninitialized request has no broadcast history of its own.
	require.Equal(t, other.Aggregation, req.Aggregation)
	require.Equal(t, other.BumpStrategy, req.BumpStrategy)
	require.Equal(t, other.FeeratePrevious, req.FeeratePrevious)
	require.Equal(t, other.HeightTimer, req.HeightTimer)
}

func TestMergeRequiresSameHeightOriginal(t *testing.T) {
	op := input.NewOutpoint(chainhash.Hash{1}, 0)
	content, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op: {Amount: 1, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	req := &OnchainRequest{AbsoluteTimelock: 500, HeightOriginal: 100, Content: content}
	other := &OnchainRequest{AbsoluteTimelock: 400, HeightOriginal: 200, Content: content}

	err = req.Merge(other)
	require.ErrorIs(t, err, ErrHeightMismatch)
}

func TestMergeAdoptsLowerTimelockAndMergesContent(t *testing.T) {
	op1 := input.NewOutpoint(chainhash.Hash{1}, 0)
	op2 := input.NewOutpoint(chainhash.Hash{2}, 0)

	c1, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op1: {Amount: 1, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)
	c2, err := NewMalleableJusticePackage(map[input.Outpoint]*RevokedOutput{
		op2: {Amount: 2, InputDescriptor: input.RevokedOutput},
	})
	require.NoError(t, err)

	req := &OnchainRequest{AbsoluteTimelock: 500, HeightOriginal: 100, Content: c1}
	other := &OnchainRequest{AbsoluteTimelock: 400, HeightOriginal: 100, Content: c2}

	require.NoError(t, req.Merge(other))

	require.EqualValues(t, 400, req.AbsoluteTimelock)
	require.ElementsMatch(t, []input.Outpoint{op1, op2}, req.Content.Outpoints())
}
