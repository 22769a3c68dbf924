package input

import "fmt"

// InputDescriptor enumerates the witness templates a claimable input on a
// counterparty commitment (or justice) transaction can carry. The ordinal
// values below are part of the wire format of chainclaim.PackageTemplate
// (see chainclaim/serialize.go) and must not be renumbered.
type InputDescriptor uint8

const (
	// RevokedOfferedHTLC is an HTLC a revoked counterparty commitment
	// offered to us, swept via the revocation path of the offered-HTLC
	// script.
	RevokedOfferedHTLC InputDescriptor = 0

	// RevokedReceivedHTLC is an HTLC a revoked counterparty commitment
	// received from us, swept via the revocation path of the
	// received-HTLC script.
	RevokedReceivedHTLC InputDescriptor = 1

	// OfferedHTLC is an HTLC offered by the remote party on their own
	// (non-revoked) commitment, claimed with the payment preimage.
	OfferedHTLC InputDescriptor = 2

	// ReceivedHTLC is an HTLC received by the remote party on their own
	// (non-revoked) commitment, claimed after its absolute CLTV timeout.
	ReceivedHTLC InputDescriptor = 3

	// RevokedOutput is the to-local output (or either second-stage HTLC
	// output) of a revoked counterparty commitment, swept via the
	// revocation branch of the to-local script.
	RevokedOutput InputDescriptor = 4
)

// String implements fmt.Stringer for log output.
func (d InputDescriptor) String() string {
	switch d {
	case RevokedOfferedHTLC:
		return "RevokedOfferedHTLC"
	case RevokedReceivedHTLC:
		return "RevokedReceivedHTLC"
	case OfferedHTLC:
		return "OfferedHTLC"
	case ReceivedHTLC:
		return "ReceivedHTLC"
	case RevokedOutput:
		return "RevokedOutput"
	default:
		return fmt.Sprintf("InputDescriptor(%d)", uint8(d))
	}
}

// Valid reports whether d is one of the five known descriptor tags. Callers
// decoding wire data must reject anything else (see §4.1 of the claim-engine
// spec: tags >= 4 are invalid for the purposes of the generic decoder, but
// RevokedOutput itself is tag 4 — the decoder instead rejects tags > 4).
func (d InputDescriptor) Valid() bool {
	return d <= RevokedOutput
}

// witnessWeight is the expected weight, in witness bytes, of satisfying the
// given input descriptor. Values are frozen by §6 of the specification and
// by TestWitnessWeightTable; signatures and locktimes vary in practice so
// the upper-bound DER signature length (73 bytes) is assumed throughout.
//
//	number_of_witness_elements + sig_length + sig + ... + script_length + script
var witnessWeight = map[InputDescriptor]int{
	// 1 (elem count) + 1 (sig len) + 73 (sig) + 1 (pubkey len) + 33 (revocation
	// pubkey) + 1 (script len) + 133 (offered-HTLC redeem script).
	RevokedOfferedHTLC: 1 + 1 + 73 + 1 + 33 + 1 + 133,

	// Same shape, against the larger received-HTLC redeem script.
	RevokedReceivedHTLC: 1 + 1 + 73 + 1 + 33 + 1 + 139,

	// 1 + 1 + 73 (sig) + 1 (preimage len) + 32 (preimage) + 1 (script len)
	// + 133 (offered-HTLC redeem script).
	OfferedHTLC: 1 + 1 + 73 + 1 + 32 + 1 + 133,

	// 1 + 1 + 73 (sig) + 1 (empty branch selector len) + 1 (empty selector)
	// + 1 (script len) + 139 (received-HTLC redeem script).
	ReceivedHTLC: 1 + 1 + 73 + 1 + 1 + 1 + 139,

	// 1 + 1 + 73 (sig) + 1 (OP_1 len) + 1 (OP_1) + 1 (script len) + 77
	// (to-local revocable script).
	RevokedOutput: 1 + 1 + 73 + 1 + 1 + 1 + 77,
}

// segwitMarkerFlagWeight is the +2 weight units every segwit transaction
// carries once for its marker and flag bytes, independent of input count.
const segwitMarkerFlagWeight = 2

// WitnessWeight returns the expected witness weight, in weight units, of
// satisfying d, and whether d is recognized.
func WitnessWeight(d InputDescriptor) (int, bool) {
	w, ok := witnessWeight[d]
	return w, ok
}

// SumWitnessWeight sums WitnessWeight over descs and adds the global segwit
// marker/flag weight exactly once, matching §6's "plus a global +2 for
// segwit marker/flag".
func SumWitnessWeight(descs []InputDescriptor) (int, error) {
	total := segwitMarkerFlagWeight
	for _, d := range descs {
		w, ok := WitnessWeight(d)
		if !ok {
			return 0, fmt.Errorf("unexpected input descriptor: %v", d)
		}
		total += w
	}
	return total, nil
}
