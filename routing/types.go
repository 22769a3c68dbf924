package routing

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/go-errors/errors"
)

// MaxValueMsat is the largest payment value the router will accept: all
// 21 million bitcoin, in millisatoshi.
const MaxValueMsat = 21_000_000 * 100_000_000 * 1000

// RouteHop is a single hop in a Route: the node it is paid through, the
// channel used to reach it from the previous hop, and the fee and CLTV
// delta that channel's use costs.
type RouteHop struct {
	PubKey          *btcec.PublicKey
	NodeFeatures    FeatureVector
	ShortChannelID  uint64
	ChannelFeatures FeatureVector
	FeeMsat         uint64
	CltvExpiryDelta uint32
}

// Route is the result of a successful GetRoute call: one or more
// independent payment paths, each ending at the same payee, whose last-hop
// fees sum to the requested final value.
type Route struct {
	Paths [][]RouteHop
}

// RouteHint supplies a caller-known channel leading into the payee that may
// not be present in the public graph (e.g. an unannounced channel advertised
// out-of-band via a BOLT 11 invoice).
type RouteHint struct {
	SrcNodeID       *btcec.PublicKey
	ShortChannelID  uint64
	Fees            RoutingFees
	CltvExpiryDelta uint16
	HtlcMinimumMsat uint64
	HtlcMaximumMsat *uint64
}

// FirstHop is a caller-known channel leading out of our own node, used to
// restrict or override the graph's view of our outbound channels.
type FirstHop struct {
	RemoteNodeID   *btcec.PublicKey
	ShortChannelID uint64
	Features       FeatureVector
}

var (
	// ErrRouteToSelf is returned when the payee is our own node.
	ErrRouteToSelf = errors.New("routing: cannot generate a route to ourselves")

	// ErrValueTooLarge is returned when final_value_msat exceeds
	// MaxValueMsat.
	ErrValueTooLarge = errors.New("routing: cannot generate a route of more value than exists")

	// ErrNoOutboundChannels is returned when first_hops was supplied but
	// is empty: there is no way to leave our own node.
	ErrNoOutboundChannels = errors.New("routing: no outbound channels available")

	// ErrRouteUnreachable is returned when no path exists from payer to
	// payee under the feature and liquidity constraints in effect.
	ErrRouteUnreachable = errors.New("routing: failed to find a path to the given destination")

	// ErrRouteInsufficient is returned when at least one path was found
	// but the aggregate liquidity collected falls short of
	// final_value_msat.
	ErrRouteInsufficient = errors.New("routing: failed to find a sufficient route to the given destination")
)
