package chainclaim

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/lightninglabs/chanclaim/input"
)

// RevokedOutput describes a single output on a revoked counterparty
// commitment transaction: the templated witness-script key material needed
// to rebuild its witness script, the per-commitment secret that lets us
// derive the revocation private key, and (when it is a second-stage HTLC
// output rather than the to-local output) the HTLC terms themselves.
//
// Lifetime: created when a revoked counterparty commitment is detected on
// chain; consumed by a signed justice transaction; discarded once that
// transaction reaches a safe confirmation depth, or on reorg-driven
// invalidation of the commitment that created it.
type RevokedOutput struct {
	PerCommitmentPoint          *btcec.PublicKey
	RemoteDelayedPaymentBaseKey *btcec.PublicKey
	RemoteHTLCBaseKey           *btcec.PublicKey
	PerCommitmentKey            *btcec.PrivateKey
	InputDescriptor             input.InputDescriptor
	Amount                      btcutil.Amount
	HTLC                        *input.HTLCOutputInCommitment
	OnRemoteTxCSV               uint16
}

// RemoteHTLCOutput describes an HTLC output on the remote party's current
// (non-revoked) commitment transaction. The presence of Preimage
// distinguishes an offered-success claim (spendable immediately, no
// locktime) from a received-timeout claim (spendable only after the HTLC's
// absolute cltv_expiry).
type RemoteHTLCOutput struct {
	PerCommitmentPoint          *btcec.PublicKey
	RemoteDelayedPaymentBaseKey *btcec.PublicKey
	RemoteHTLCBaseKey           *btcec.PublicKey
	Preimage                    *[32]byte
	HTLC                        input.HTLCOutputInCommitment
}

// LocalHTLCOutput describes a second-stage HTLC output on our own
// commitment transaction. Its spending transaction is pre-signed by the
// counterparty, so finalization is delegated entirely to the signer
// capability rather than assembled here.
type LocalHTLCOutput struct {
	Preimage *[32]byte
	Amount   btcutil.Amount
}

// LocalFundingOutput describes the funding output spent by our own
// (pre-signed) commitment transaction. As with LocalHTLCOutput,
// finalization is delegated to the signer.
type LocalFundingOutput struct {
	FundingRedeemScript []byte
}
