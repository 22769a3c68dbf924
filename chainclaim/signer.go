package chainclaim

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/lightninglabs/chanclaim/input"
)

// Signer is the signing capability the claim engine depends on for every
// witness it cannot assemble from public key material alone, and for the
// two transaction kinds whose finalization it delegates entirely: second
// stage HTLC transactions and local commitment transactions, both of which
// are pre-signed by the counterparty and carry signatures the claim engine
// never sees directly.
//
// Any operation may fail; a failure propagates out of PackageTemplate.Finalize
// as (nil, nil) rather than as an error, per the SignerFailure error kind.
type Signer interface {
	// SignJusticeTransaction produces the local signature over input
	// inputIndex of tx, which spends a revoked output worth amount,
	// using the per-commitment private key. htlc is non-nil when the
	// output being swept is a revoked HTLC rather than a to-local
	// output.
	SignJusticeTransaction(
		tx *wire.MsgTx, inputIndex int, amount btcutil.Amount,
		perCommitmentKey *btcec.PrivateKey,
		htlc *input.HTLCOutputInCommitment, onRemoteTxCSV uint16,
	) ([]byte, error)

	// SignRemoteHTLCTransaction produces the local signature over input
	// inputIndex of tx, which spends an HTLC output on the
	// counterparty's current commitment transaction.
	SignRemoteHTLCTransaction(
		tx *wire.MsgTx, inputIndex int, amount btcutil.Amount,
		perCommitmentPoint *btcec.PublicKey,
		htlc input.HTLCOutputInCommitment,
	) ([]byte, error)

	// GetFullySignedHTLCTx returns the fully assembled, counterparty-
	// pre-signed second-stage transaction spending outpoint, applying
	// preimage to the success path when non-nil.
	GetFullySignedHTLCTx(outpoint input.Outpoint, preimage *[32]byte) (*wire.MsgTx, error)

	// GetFullySignedLocalTx returns the fully assembled, counterparty-
	// pre-signed commitment transaction whose funding output is guarded
	// by fundingRedeemScript.
	GetFullySignedLocalTx(fundingRedeemScript []byte) (*wire.MsgTx, error)
}
