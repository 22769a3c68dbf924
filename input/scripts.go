package input

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
)

// P2WPKHSize is the size, in bytes, of a P2WPKH output script
// (OP_0 <20-byte-hash>): 1 byte opcode, 1 byte push length, 20 byte hash.
// Used to size the dust threshold a CPFP bumping output's change must clear.
const P2WPKHSize = 1 + 1 + 20

// ToLocalScript builds the revocable to-local witness script: spendable
// immediately with a signature under revocationKey, or after csvDelay blocks
// with a signature under localDelayedKey. This is the script swept by
// RevokedOutput claims that carry no HTLC (the branch-selector is the
// literal OP_1 byte) and is the witness program protecting a commitment's
// to-local output more generally.
func ToLocalScript(revocationKey, localDelayedKey *btcec.PublicKey,
	csvDelay uint16) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_IF)
	builder.AddData(revocationKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddInt64(int64(csvDelay))
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddData(localDelayedKey.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// OfferedHTLCScript builds the witness script for an HTLC offered by the
// local (or, for a RevokedOfferedHTLC claim, the then-local) party: spendable
// by the remote party with the payment preimage, or by either party's
// revocation key if the commitment was revoked.
func OfferedHTLCScript(revocationKey, remoteHTLCKey, localHTLCKey *btcec.PublicKey,
	paymentHash []byte) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(btcec.Hash160(revocationKey.SerializeCompressed()))
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddData(remoteHTLCKey.SerializeCompressed())
	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_SIZE)
	builder.AddInt64(32)
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_NOTIF)
	builder.AddOp(txscript.OP_DROP)
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_SWAP)
	builder.AddData(localHTLCKey.SerializeCompressed())
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(paymentHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}

// ReceivedHTLCScript builds the witness script for an HTLC received by the
// local (or then-local) party: spendable with the preimage immediately, by
// the remote party's revocation key if the commitment was revoked, or by the
// remote party after the HTLC's absolute CLTV expiry.
func ReceivedHTLCScript(revocationKey, remoteHTLCKey, localHTLCKey *btcec.PublicKey,
	paymentHash []byte, cltvExpiry uint32) ([]byte, error) {

	builder := txscript.NewScriptBuilder()

	builder.AddOp(txscript.OP_DUP)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(btcec.Hash160(revocationKey.SerializeCompressed()))
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddData(remoteHTLCKey.SerializeCompressed())
	builder.AddOp(txscript.OP_SWAP)
	builder.AddOp(txscript.OP_SIZE)
	builder.AddInt64(32)
	builder.AddOp(txscript.OP_EQUAL)
	builder.AddOp(txscript.OP_IF)
	builder.AddOp(txscript.OP_HASH160)
	builder.AddData(paymentHash)
	builder.AddOp(txscript.OP_EQUALVERIFY)
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_SWAP)
	builder.AddData(localHTLCKey.SerializeCompressed())
	builder.AddInt64(2)
	builder.AddOp(txscript.OP_CHECKMULTISIG)
	builder.AddOp(txscript.OP_ELSE)
	builder.AddOp(txscript.OP_DROP)
	builder.AddInt64(int64(cltvExpiry))
	builder.AddOp(txscript.OP_CHECKLOCKTIMEVERIFY)
	builder.AddOp(txscript.OP_DROP)
	builder.AddOp(txscript.OP_CHECKSIG)
	builder.AddOp(txscript.OP_ENDIF)
	builder.AddOp(txscript.OP_ENDIF)

	return builder.Script()
}
