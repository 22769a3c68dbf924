package routing

import (
	"bytes"
	"container/heap"

	"github.com/btcsuite/btcd/btcec/v2"
)

// routeGraphNode is a priority-queue entry for the payee-to-payer search:
// the node being relaxed, the cheapest known cost of routing through it to
// the payee, and a second, purely informational field carried along for the
// caller to thread into the next add_vertice call as
// following_hops_fees_msat.
type routeGraphNode struct {
	pubKey                       btcec.PublicKey
	lowestFeeToPeerThroughNode   uint64
	lowestFeeToNode              uint64
}

// routeGraphHeap is a binary min-heap (by lowestFeeToPeerThroughNode, tied
// on descending serialized-pubkey order for determinism across platforms)
// implementing container/heap.Interface.
type routeGraphHeap []routeGraphNode

func (h routeGraphHeap) Len() int { return len(h) }

func (h routeGraphHeap) Less(i, j int) bool {
	if h[i].lowestFeeToPeerThroughNode != h[j].lowestFeeToPeerThroughNode {
		return h[i].lowestFeeToPeerThroughNode < h[j].lowestFeeToPeerThroughNode
	}
	// Tiebreak must be stable across platforms: compare serialized
	// pubkey bytes, descending (matches the reference implementation's
	// reversed comparator, since Rust's BinaryHeap is a max-heap and
	// this is a min-heap).
	bi := h[i].pubKey.SerializeCompressed()
	bj := h[j].pubKey.SerializeCompressed()
	return bytes.Compare(bi, bj) > 0
}

func (h routeGraphHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *routeGraphHeap) Push(x interface{}) {
	*h = append(*h, x.(routeGraphNode))
}

func (h *routeGraphHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

var (
	_ heap.Interface = (*routeGraphHeap)(nil)
)

// paymentHop is the per-node bookkeeping record built while unrolling the
// payee-to-payer search. It is stored in a map keyed by node identity
// (weightedVertices), not as mutually-referring nodes, since the relaxation
// structure is a back-pointer tree rather than a graph.
type paymentHop struct {
	routeHop RouteHop

	// availableLiquidityMsat is the liquidity this hop's channel can
	// still carry, net of bookkept usage by other paths in the same
	// search session. It does not yet account for the fee charged on
	// this hop itself.
	availableLiquidityMsat uint64

	// srcLowestInboundFees estimates the cheapest way to reach this
	// hop's source node via any of its inbound channels; used only as a
	// lookahead heuristic when relaxing the node one hop further back.
	srcLowestInboundFees RoutingFees

	// channelFees is the fee policy of the channel used on this hop.
	channelFees RoutingFees

	// followingHopsFeesMsat is the sum of fees paid on every hop after
	// this one, on the way to the destination.
	followingHopsFeesMsat uint64

	// hopUseFeeMsat is the fee charged for using this hop's channel; it
	// is actually paid on the previous hop (see getFeeWeightMsat).
	hopUseFeeMsat uint64

	// prevHopUseEstimateFeeMsat is the lookahead estimate of the fee
	// required to reach this hop's source node.
	prevHopUseEstimateFeeMsat uint64
}

// getFeeWeightMsat is how attractive this channel is, summing what has
// already been decided (following hops) with what is being estimated (using
// and reaching this hop). Saturates to math.MaxUint64 on overflow so an
// unreachable combination never wins a comparison.
func (p *paymentHop) getFeeWeightMsat() uint64 {
	atCurrent := saturatingAdd(p.hopUseFeeMsat, p.prevHopUseEstimateFeeMsat)
	return saturatingAdd(atCurrent, p.followingHopsFeesMsat)
}

// getFeePaidMsat returns the fee actually paid for using this hop's
// channel, only meaningful after route_hop.fee_msat has been propagated
// from the next hop.
func (p *paymentHop) getFeePaidMsat() uint64 {
	return saturatingAdd(p.followingHopsFeesMsat, p.routeHop.FeeMsat)
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a {
		return ^uint64(0)
	}
	return sum
}

// paymentPath is an ordered, payer-to-payee (after reversal) chain of
// paymentHops built from a single payee-to-payer search pass.
type paymentPath struct {
	hops []paymentHop
}

func (p *paymentPath) valueMsat() uint64 {
	return p.hops[len(p.hops)-1].routeHop.FeeMsat
}

func (p *paymentPath) totalFeePaidMsat() uint64 {
	if len(p.hops) == 0 {
		return 0
	}
	return p.hops[0].followingHopsFeesMsat
}

// updateValueAndRecomputeFees recomputes every hop's fee given a new
// transferred value, walking from destination toward source, then
// propagates each hop's own-use fee one step back to the hop that actually
// pays it. The last hop's fee becomes value, the payment amount delivered.
func (p *paymentPath) updateValueAndRecomputeFees(valueMsat uint64) {
	var totalFeePaid uint64
	for i := len(p.hops) - 1; i >= 1; i-- {
		curHopAmount := totalFeePaid + valueMsat
		p.hops[i].followingHopsFeesMsat = totalFeePaid
		newFee := computeFees(curHopAmount, p.hops[i].channelFees)
		p.hops[i].hopUseFeeMsat = newFee
		totalFeePaid += newFee
	}

	for i := 0; i < len(p.hops)-1; i++ {
		p.hops[i].routeHop.FeeMsat = p.hops[i+1].hopUseFeeMsat
	}
	p.hops[len(p.hops)-1].routeHop.FeeMsat = valueMsat
}
