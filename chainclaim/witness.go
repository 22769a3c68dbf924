package chainclaim

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/lightninglabs/chanclaim/input"
)

// revokedWitnessScript rebuilds the witness script a revoked output was
// committed to: the to-local delayed-claim script when the output carries no
// HTLC, or the matching offered/received HTLC script (whose revocation
// branch this finalize call is about to take) otherwise.
func revokedWitnessScript(out *RevokedOutput) ([]byte, error) {
	revocationKey := deriveRevocationPubKey(out)

	if out.HTLC == nil {
		return input.ToLocalScript(
			revocationKey, out.RemoteDelayedPaymentBaseKey, out.OnRemoteTxCSV,
		)
	}

	if out.HTLC.Offered {
		return input.OfferedHTLCScript(
			revocationKey, out.RemoteHTLCBaseKey, out.RemoteHTLCBaseKey,
			out.HTLC.PaymentHash[:],
		)
	}
	return input.ReceivedHTLCScript(
		revocationKey, out.RemoteHTLCBaseKey, out.RemoteHTLCBaseKey,
		out.HTLC.PaymentHash[:], out.HTLC.CltvExpiry,
	)
}

// remoteHTLCWitnessScript rebuilds the witness script of an HTLC output on
// the counterparty's current commitment transaction.
func remoteHTLCWitnessScript(out *RemoteHTLCOutput) ([]byte, error) {
	revocationKey := out.PerCommitmentPoint

	if out.HTLC.Offered {
		return input.OfferedHTLCScript(
			revocationKey, out.RemoteHTLCBaseKey, out.RemoteHTLCBaseKey,
			out.HTLC.PaymentHash[:],
		)
	}
	return input.ReceivedHTLCScript(
		revocationKey, out.RemoteHTLCBaseKey, out.RemoteHTLCBaseKey,
		out.HTLC.PaymentHash[:], out.HTLC.CltvExpiry,
	)
}

// deriveRevocationPubKey returns the per-commitment point standing in for
// the revocation key. The claim engine only ever finalizes a revoked output
// after its holder already derived the actual tweaked revocation private
// key (stored as PerCommitmentKey); the public point used to build the
// witness script is therefore the one attached to the commitment, not a
// fresh derivation.
func deriveRevocationPubKey(out *RevokedOutput) *btcec.PublicKey {
	return out.PerCommitmentPoint
}
