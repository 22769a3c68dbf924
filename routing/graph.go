package routing

import (
	"math/bits"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

// RoutingFees mirrors a channel's advertised fee policy: a flat per-HTLC
// base fee and a proportional rate charged in millionths of the forwarded
// amount.
type RoutingFees struct {
	BaseMsat              uint32
	ProportionalMillionths uint32
}

// computeFees returns base + amount*ppm/1_000_000, saturating to
// math.MaxUint64 on overflow rather than wrapping, since an overflowing fee
// can never be the cheapest edge and should simply be treated as unusable.
func computeFees(amountMsat uint64, fees RoutingFees) uint64 {
	part, ok := mulDivSaturating(amountMsat, uint64(fees.ProportionalMillionths), 1_000_000)
	if !ok {
		return ^uint64(0)
	}
	sum := uint64(fees.BaseMsat) + part
	if sum < uint64(fees.BaseMsat) {
		return ^uint64(0)
	}
	return sum
}

// mulDivSaturating computes floor(a*b/c) using the standard library's
// 128-bit multiply, saturating to math.MaxUint64 on overflow.
func mulDivSaturating(a, b, c uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return ^uint64(0), false
	}
	return lo / c, true
}

// FeatureVector is an opaque feature-bit vector, used for both node and
// channel features. The
// router only needs to know whether a vector sets any bit outside the bits
// it recognizes (an "unknown required feature"); real feature semantics
// belong to the lnwire feature vector this type stands in for.
type FeatureVector struct {
	// Bits holds the raw feature bitfield. Bit i being set means feature
	// i is present; even-numbered bits are "required" by BOLT 9
	// convention.
	Bits uint64

	// KnownMask has a 1 for every bit position the caller's node
	// understands. A required (even) bit set outside this mask makes the
	// vector unusable.
	KnownMask uint64
}

// RequiresUnknownBits reports whether fv sets a required (even) bit the
// caller does not understand.
func (fv FeatureVector) RequiresUnknownBits() bool {
	unknown := fv.Bits &^ fv.KnownMask
	const evenMask = 0x5555555555555555
	return unknown&evenMask != 0
}

// DirectionalChannelInfo is one direction's routing policy for a channel.
type DirectionalChannelInfo struct {
	Enabled         bool
	CltvExpiryDelta uint16
	HtlcMinimumMsat uint64
	HtlcMaximumMsat *uint64
	Fees            RoutingFees
}

// ChannelInfo is a channel in the graph snapshot, identified by its short
// channel id, connecting NodeOne and NodeTwo (ordered by serialized pubkey,
// matching the announcement convention). OneToTwo and TwoToOne are nil when
// no channel_update has been seen for that direction.
type ChannelInfo struct {
	ShortChannelID uint64
	NodeOne        *btcec.PublicKey
	NodeTwo        *btcec.PublicKey
	Features       FeatureVector
	CapacitySats   *btcutil.Amount

	OneToTwo *DirectionalChannelInfo
	TwoToOne *DirectionalChannelInfo
}

// NodeInfo is a node in the graph snapshot.
type NodeInfo struct {
	PubKey   *btcec.PublicKey
	Features FeatureVector

	// LowestInboundFees, if non-nil, is the cheapest advertised fee
	// policy among this node's inbound channels — used as a lookahead
	// estimate of the cost of the hop preceding this node.
	LowestInboundFees *RoutingFees

	// Channels lists the short channel ids incident to this node.
	Channels []uint64
}

// NetworkGraph is the read-only channel graph snapshot the router searches.
// Callers own a consistent view (e.g. a read lock over the live graph
// store) for the duration of a single GetRoute call; the router itself
// never mutates it.
type NetworkGraph struct {
	nodes    map[btcec.PublicKey]*NodeInfo
	channels map[uint64]*ChannelInfo
}

// NewNetworkGraph returns an empty, mutable graph snapshot builder. Callers
// populate it via AddNode/AddChannel before handing it to GetRoute.
func NewNetworkGraph() *NetworkGraph {
	return &NetworkGraph{
		nodes:    make(map[btcec.PublicKey]*NodeInfo),
		channels: make(map[uint64]*ChannelInfo),
	}
}

// AddNode inserts or replaces a node in the snapshot.
func (g *NetworkGraph) AddNode(n *NodeInfo) {
	g.nodes[*n.PubKey] = n
}

// AddChannel inserts or replaces a channel in the snapshot, and records its
// short channel id against both endpoint nodes' Channels list.
func (g *NetworkGraph) AddChannel(c *ChannelInfo) {
	g.channels[c.ShortChannelID] = c
	for _, pub := range []*btcec.PublicKey{c.NodeOne, c.NodeTwo} {
		if node, ok := g.nodes[*pub]; ok {
			node.Channels = append(node.Channels, c.ShortChannelID)
		}
	}
}

// Node looks up a node by public key.
func (g *NetworkGraph) Node(pub btcec.PublicKey) (*NodeInfo, bool) {
	n, ok := g.nodes[pub]
	return n, ok
}

// Channel looks up a channel by short channel id.
func (g *NetworkGraph) Channel(scid uint64) (*ChannelInfo, bool) {
	c, ok := g.channels[scid]
	return c, ok
}

// NumNodes returns the node count, used only to size the router's internal
// maps up front.
func (g *NetworkGraph) NumNodes() int {
	return len(g.nodes)
}
