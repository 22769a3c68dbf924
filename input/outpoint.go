package input

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Outpoint is the on-chain identity of a claimable output: the transaction
// that created it and the index within that transaction's output list. It
// is a thin, hashable wrapper around wire.OutPoint so that package templates
// can key their input maps on it directly.
type Outpoint struct {
	Txid chainhash.Hash
	Vout uint32
}

// NewOutpoint builds an Outpoint from a txid and vout.
func NewOutpoint(txid chainhash.Hash, vout uint32) Outpoint {
	return Outpoint{Txid: txid, Vout: vout}
}

// Wire converts the Outpoint into the representation the btcsuite
// transaction-construction APIs expect.
func (o Outpoint) Wire() wire.OutPoint {
	return wire.OutPoint{Hash: o.Txid, Index: o.Vout}
}

// String returns the canonical txid:vout form used in logging.
func (o Outpoint) String() string {
	return o.Wire().String()
}
