package input

import "github.com/btcsuite/btcd/btcutil"

// MilliSatoshi represents a thousandth of a satoshi, the unit HTLC amounts
// and routing fees are carried in throughout the claim engine and router.
type MilliSatoshi uint64

// ToSatoshis truncates m down to the nearest whole satoshi.
func (m MilliSatoshi) ToSatoshis() btcutil.Amount {
	return btcutil.Amount(m / 1000)
}

// HTLCOutputInCommitment captures the subset of an HTLC's terms a claim
// needs in order to rebuild its witness script and to compute its absolute
// timeout: the payment hash it is locked to, the amount it carries, its
// CLTV expiry height, and whether it was offered (true) or received (false)
// by the commitment's owner.
type HTLCOutputInCommitment struct {
	Offered     bool
	AmountMsat  MilliSatoshi
	CltvExpiry  uint32
	PaymentHash [32]byte
}
