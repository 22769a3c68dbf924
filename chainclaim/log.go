// Package chainclaim manufactures, aggregates, fee-bumps, and finalizes the
// time-sensitive settlement transactions a channel's justice/sweep logic
// needs after a counterparty broadcasts a commitment transaction: justice
// transactions for revoked states, second-stage HTLC claims, and the
// channel's own pre-signed local transactions. It is the Go rendition of
// the onchain claim engine in lightningnetwork/lnd's sweep/contractcourt
// packages and rust-lightning's ln::onchain_utils / ln::onchaintx.
package chainclaim

import "github.com/btcsuite/btclog"

var log btclog.Logger

func init() {
	UseLogger(btclog.Disabled)
}

// UseLogger sets the package-wide logger used by chainclaim.
func UseLogger(logger btclog.Logger) {
	log = logger
}
