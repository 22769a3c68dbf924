package chainclaim

import (
	"github.com/go-errors/errors"

	"github.com/lightninglabs/chanclaim/input"
)

// BumpStrategy selects how an OnchainRequest is re-broadcast when its
// feerate needs raising.
type BumpStrategy uint8

const (
	// BumpRBF re-emits a replacement transaction at a higher feerate.
	BumpRBF BumpStrategy = iota

	// BumpCPFP attaches a fee-bearing child transaction instead of
	// replacing the parent, used when the parent cannot be replaced
	// (e.g. it is already counterparty-broadcast).
	BumpCPFP
)

// uninitializedTimelock is the sentinel absolute_timelock value (2^32-1)
// that marks an OnchainRequest as not yet carrying real content; the first
// merge into such a request copies the other request's data wholesale
// instead of reconciling timelocks.
const uninitializedTimelock = ^uint32(0)

// OnchainRequest wraps a PackageTemplate with the bookkeeping the bump loop
// needs across broadcasts: the timelock that bounds how long the claim may
// remain unconfirmed, the feerate of the last attempt, and whether multiple
// packages targeting the same triggering block may be coalesced.
type OnchainRequest struct {
	Aggregation      bool
	BumpStrategy     BumpStrategy
	FeeratePrevious  uint64
	HeightTimer      *uint32
	AbsoluteTimelock uint32
	HeightOriginal   uint32
	Content          *PackageTemplate
}

// NewOnchainRequest returns the default, uninitialized request: aggregation
// enabled, RBF bump strategy, no prior feerate, the uninitialized timelock
// sentinel, and an empty MalleableJustice content ready to absorb the first
// real package via Merge.
func NewOnchainRequest() *OnchainRequest {
	return &OnchainRequest{
		Aggregation:      true,
		BumpStrategy:     BumpRBF,
		FeeratePrevious:  0,
		HeightTimer:      nil,
		AbsoluteTimelock: uninitializedTimelock,
		HeightOriginal:   0,
		Content:          &PackageTemplate{Kind: KindMalleableJustice, Malleable: map[input.Outpoint]malleableEntry{}},
	}
}

// ErrHeightMismatch is returned by Merge when the two requests were
// triggered by different blocks and therefore must not be coalesced — they
// model claims belonging to different reorg branches.
var ErrHeightMismatch = errors.New("chainclaim: cannot merge requests with different height_original")

// Merge absorbs other into r. If r is uninitialized (AbsoluteTimelock is
// still the sentinel), r copies height_original, content, and
// absolute_timelock from other wholesale — and, per the chosen resolution of
// an open design question, also adopts other's aggregation, bump_strategy,
// feerate_previous, and height_timer, since an uninitialized request has no
// prior broadcast history of its own to preserve and silently keeping its
// zero-value defaults would discard real information other already carries.
// Otherwise, r and other must share the same height_original; r adopts the
// lower of the two timelocks and merges other's content into its own.
func (r *OnchainRequest) Merge(other *OnchainRequest) error {
	if r.AbsoluteTimelock == uninitializedTimelock {
		r.HeightOriginal = other.HeightOriginal
		r.Content = other.Content
		r.AbsoluteTimelock = other.AbsoluteTimelock
		r.Aggregation = other.Aggregation
		r.BumpStrategy = other.BumpStrategy
		r.FeeratePrevious = other.FeeratePrevious
		r.HeightTimer = other.HeightTimer
		return nil
	}

	if r.HeightOriginal != other.HeightOriginal {
		return ErrHeightMismatch
	}

	if other.AbsoluteTimelock < r.AbsoluteTimelock {
		r.AbsoluteTimelock = other.AbsoluteTimelock
	}
	r.Content.Merge(other.Content)
	return nil
}
