// Package chainfee models fee rates on the base chain and the three-tier
// fee estimator capability the claim engine consumes when it has no prior
// feerate to bump from. It is modeled after the chainfee package found
// across the lnd family (see the dcrlnd fork's lnwallet/chainfee), adapted
// from a confirmation-target API to the fixed HighPriority/Normal/Background
// tiers this specification calls for.
package chainfee

import (
	"math"
	"math/bits"

	"github.com/btcsuite/btcd/btcutil"
)

// SatPerKWeight represents a fee rate in satoshis per 1000 weight units, the
// native unit segwit fee rates are expressed in.
type SatPerKWeight uint64

// FeeForWeight computes the fee, in satoshis, owed for a transaction of the
// given weight at this fee rate. It saturates to the largest btcutil.Amount
// rather than overflow, per the specification's requirement that fee/weight
// arithmetic collapse overflow to an "unusable edge" sentinel.
func (f SatPerKWeight) FeeForWeight(weight int64) btcutil.Amount {
	fee, _ := mulDivSaturating(uint64(f), uint64(weight), 1000)
	if fee > math.MaxInt64 {
		return btcutil.Amount(math.MaxInt64)
	}
	return btcutil.Amount(fee)
}

// FeePerKVByte converts a weight-based fee rate into the legacy
// sat/KvB convention some relay-policy helpers (e.g. txrules dust
// calculations) still expect.
func (f SatPerKWeight) FeePerKVByte() btcutil.Amount {
	return btcutil.Amount(f * 4)
}

// mulDivSaturating computes floor(a*b/c), saturating to math.MaxUint64 on
// overflow instead of wrapping. ok is false when saturation occurred.
func mulDivSaturating(a, b, c uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}

	hi, lo := bits.Mul64(a, b)
	if hi == 0 {
		return lo / c, true
	}

	// The 128-bit product overflows 64 bits. The result is saturated
	// here even when the quotient itself would fit in 64 bits, and is
	// treated as the "unusable edge" sentinel described in the spec.
	return ^uint64(0), false
}
