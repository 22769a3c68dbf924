package routing

import (
	"container/heap"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2"
)

// routeCapacityProvisionFactor inflates the value we search for so that the
// path collection loop gathers enough slack candidate paths for the
// combination stage to choose cheaply among. Set to 4x per the reference
// implementation.
const routeCapacityProvisionFactor = 4

// maxCandidatePaths caps how many of the cheapest collected paths the
// combination stage considers, to bound its rotate-and-accumulate search.
const maxCandidatePaths = 50

// routingState is the per-call scratch space for a single GetRoute
// invocation: the priority queue driving the payee-to-payer search, the
// back-pointer map of relaxed nodes, and the liquidity bookkeeping shared
// across every path collected in this call so that later paths don't double
// spend a channel's liquidity.
type routingState struct {
	targetedEdges     routeGraphHeap
	weightedVertices  map[btcec.PublicKey]*paymentHop
	payerNodeID       btcec.PublicKey
	bookkeptLiquidity map[uint64]uint64

	recommendedValueMsat   uint64
	alreadyCollectedMsat   uint64

	graph *NetworkGraph
}

func newRoutingState(graph *NetworkGraph, payerNodeID btcec.PublicKey, recommendedValueMsat uint64) *routingState {
	return &routingState{
		weightedVertices:  make(map[btcec.PublicKey]*paymentHop, graph.NumNodes()),
		payerNodeID:       payerNodeID,
		bookkeptLiquidity: make(map[uint64]uint64),
		recommendedValueMsat: recommendedValueMsat,
		graph:             graph,
	}
}

// addVertice relaxes the edge (srcNodeID --scid--> destNodeID), pushing a
// new heap entry if this path to destNodeID (and onward to the payee)
// beats the best one known for srcNodeID so far.
func (s *routingState) addVertice(
	scid uint64, srcNodeID, destNodeID *btcec.PublicKey,
	dir *DirectionalChannelInfo, capacitySats *uint64, features FeatureVector,
	followingHopsFeesMsat uint64,
) {
	availableLiquidityMsat, ok := s.bookkeptLiquidity[scid]
	if !ok {
		availableLiquidityMsat = channelLiquidityMsat(capacitySats, dir)
		s.bookkeptLiquidity[scid] = availableLiquidityMsat
	}

	valueLeftToCollect := s.recommendedValueMsat - s.alreadyCollectedMsat
	minimalLiquidityContribution := valueLeftToCollect / 20
	hasSufficientLiquidity := availableLiquidityMsat >= minimalLiquidityContribution
	canCoverFollowingHops := availableLiquidityMsat > followingHopsFeesMsat
	amountToTransfer := availableLiquidityMsat
	if valueLeftToCollect < amountToTransfer {
		amountToTransfer = valueLeftToCollect
	}

	if !hasSufficientLiquidity || !canCoverFollowingHops {
		return
	}
	if dir != nil && amountToTransfer < dir.HtlcMinimumMsat {
		return
	}

	entry, exists := s.weightedVertices[*srcNodeID]
	if !exists {
		node, _ := s.graph.Node(*srcNodeID)
		baseFee := RoutingFees{BaseMsat: ^uint32(0), ProportionalMillionths: ^uint32(0)}
		if node != nil && node.LowestInboundFees != nil {
			baseFee = *node.LowestInboundFees
		}
		entry = &paymentHop{
			routeHop: RouteHop{
				PubKey:          destNodeID,
				ChannelFeatures: features,
				FeeMsat:         0,
			},
			availableLiquidityMsat:    0,
			srcLowestInboundFees:      baseFee,
			channelFees:               dir.Fees,
			followingHopsFeesMsat:     ^uint64(0),
			hopUseFeeMsat:             ^uint64(0),
			prevHopUseEstimateFeeMsat: ^uint64(0),
		}
		s.weightedVertices[*srcNodeID] = entry
	}

	hopUseFeeMsat := computeFees(amountToTransfer, dir.Fees)
	var prevHopUseEstimateFeeMsat uint64
	totalFeeMsat := followingHopsFeesMsat
	if *srcNodeID != s.payerNodeID {
		totalFeeMsat = saturatingAdd(totalFeeMsat, hopUseFeeMsat)
		prevHopUseEstimateFeeMsat = computeFees(
			saturatingAdd(totalFeeMsat, amountToTransfer), entry.srcLowestInboundFees,
		)
		totalFeeMsat = saturatingAdd(totalFeeMsat, prevHopUseEstimateFeeMsat)
	}

	if entry.getFeeWeightMsat() > totalFeeMsat {
		heap.Push(&s.targetedEdges, routeGraphNode{
			pubKey:                     *srcNodeID,
			lowestFeeToPeerThroughNode: totalFeeMsat,
			lowestFeeToNode:            saturatingAdd(followingHopsFeesMsat, hopUseFeeMsat),
		})
		entry.followingHopsFeesMsat = followingHopsFeesMsat
		entry.hopUseFeeMsat = hopUseFeeMsat
		entry.prevHopUseEstimateFeeMsat = prevHopUseEstimateFeeMsat
		entry.routeHop = RouteHop{
			PubKey:          destNodeID,
			ShortChannelID:  scid,
			ChannelFeatures: features,
			FeeMsat:         0,
			CltvExpiryDelta: uint32(dir.CltvExpiryDelta),
		}
		entry.availableLiquidityMsat = availableLiquidityMsat
		entry.channelFees = dir.Fees
	}
}

// channelLiquidityMsat derives a channel's initial assumed liquidity from
// the first of: min(capacity, htlc_maximum_msat), htlc_maximum_msat alone,
// capacity alone, or a 10,000,000 msat fallback for channels with unknown
// capacity and no advertised maximum.
func channelLiquidityMsat(capacitySats *uint64, dir *DirectionalChannelInfo) uint64 {
	var fromCapacity *uint64
	if capacitySats != nil {
		v := *capacitySats * 1000
		fromCapacity = &v
	}

	var htlcMax *uint64
	if dir != nil {
		htlcMax = dir.HtlcMaximumMsat
	}

	switch {
	case fromCapacity != nil && htlcMax != nil:
		if *fromCapacity < *htlcMax {
			return *fromCapacity
		}
		return *htlcMax
	case htlcMax != nil:
		return *htlcMax
	case fromCapacity != nil:
		return *fromCapacity
	default:
		return 10_000_000
	}
}

// selectWeightedVerticeToTargetEdge examines every channel incident to
// node, relaxing the directional edge leading into it from each neighbor
// that is enabled and whose features the caller understands.
func (s *routingState) selectWeightedVerticeToTargetEdge(
	node *NodeInfo, nodeID *btcec.PublicKey, feeToTargetMsat uint64,
	firstHopsRestricted bool,
) {
	if node.Features.RequiresUnknownBits() {
		return
	}

	for _, scid := range node.Channels {
		chanInfo, ok := s.graph.Channel(scid)
		if !ok || chanInfo.Features.RequiresUnknownBits() {
			continue
		}

		var capacity *uint64
		if chanInfo.CapacitySats != nil {
			v := uint64(*chanInfo.CapacitySats)
			capacity = &v
		}

		if *chanInfo.NodeOne == *nodeID {
			if firstHopsRestricted && *chanInfo.NodeTwo == s.payerNodeID {
				continue
			}
			if chanInfo.TwoToOne != nil && chanInfo.TwoToOne.Enabled {
				s.addVertice(
					scid, chanInfo.NodeTwo, chanInfo.NodeOne,
					chanInfo.TwoToOne, capacity, chanInfo.Features,
					feeToTargetMsat,
				)
			}
		} else {
			if firstHopsRestricted && *chanInfo.NodeOne == s.payerNodeID {
				continue
			}
			if chanInfo.OneToTwo != nil && chanInfo.OneToTwo.Enabled {
				s.addVertice(
					scid, chanInfo.NodeOne, chanInfo.NodeTwo,
					chanInfo.OneToTwo, capacity, chanInfo.Features,
					feeToTargetMsat,
				)
			}
		}
	}
}

// GetRoute searches network, payee-to-payer, for one or more payment paths
// from ourID totaling finalValueMsat, with a final CLTV delta of finalCltv
// at the payee. firstHops, if non-nil, restricts outbound channel selection
// from our own node to exactly that set; lastHops supplies caller-known
// channels leading into the payee that the graph may not otherwise contain.
func GetRoute(
	ourID *btcec.PublicKey, network *NetworkGraph, payee *btcec.PublicKey,
	firstHops []FirstHop, lastHops []RouteHint,
	finalValueMsat uint64, finalCltv uint32,
) (*Route, error) {

	if *payee == *ourID {
		return nil, ErrRouteToSelf
	}
	if finalValueMsat > MaxValueMsat {
		return nil, ErrValueTooLarge
	}

	recommendedValueMsat := finalValueMsat * routeCapacityProvisionFactor
	state := newRoutingState(network, *ourID, recommendedValueMsat)

	firstHopTargets := make(map[btcec.PublicKey]FirstHop, len(firstHops))
	firstHopsRestricted := firstHops != nil
	for _, hop := range firstHops {
		if *hop.RemoteNodeID == *payee {
			return &Route{
				Paths: [][]RouteHop{{
					{
						PubKey:          hop.RemoteNodeID,
						NodeFeatures:    hop.Features,
						ShortChannelID:  hop.ShortChannelID,
						ChannelFeatures: hop.Features,
						FeeMsat:         finalValueMsat,
						CltvExpiryDelta: finalCltv,
					},
				}},
			}, nil
		}
		firstHopTargets[*hop.RemoteNodeID] = hop
	}
	if firstHopsRestricted && len(firstHopTargets) == 0 {
		return nil, ErrNoOutboundChannels
	}

	var paymentPaths []paymentPath

pathsCollection:
	for {
		state.targetedEdges = state.targetedEdges[:0]
		state.weightedVertices = make(map[btcec.PublicKey]*paymentHop, network.NumNodes())

		if node, ok := network.Node(*payee); ok {
			if firstHopsRestricted {
				if hop, ok := firstHopTargets[*payee]; ok {
					state.addVertice(
						hop.ShortChannelID, ourID, payee,
						&DirectionalChannelInfo{}, nil, hop.Features, 0,
					)
				}
			}
			state.selectWeightedVerticeToTargetEdge(node, payee, 0, firstHopsRestricted)
		}

		for _, hint := range lastHops {
			if firstHopsRestricted && *hint.SrcNodeID == *ourID {
				continue
			}
			if _, ok := network.Node(*hint.SrcNodeID); !ok {
				continue
			}
			if firstHopsRestricted {
				if hop, ok := firstHopTargets[*hint.SrcNodeID]; ok {
					state.addVertice(
						hop.ShortChannelID, ourID, hint.SrcNodeID,
						&DirectionalChannelInfo{}, nil, hop.Features, 0,
					)
				}
			}
			fromHint := &DirectionalChannelInfo{
				Enabled:         true,
				CltvExpiryDelta: hint.CltvExpiryDelta,
				HtlcMinimumMsat: hint.HtlcMinimumMsat,
				HtlcMaximumMsat: hint.HtlcMaximumMsat,
				Fees:            hint.Fees,
			}
			state.addVertice(
				hint.ShortChannelID, hint.SrcNodeID, payee,
				fromHint, nil, FeatureVector{}, 0,
			)
		}

		foundNewPath := false

		for state.targetedEdges.Len() > 0 {
			node := heap.Pop(&state.targetedEdges).(routeGraphNode)

			if node.pubKey == *ourID {
				finished, err := state.collectPath(ourID, payee, firstHopTargets, finalValueMsat, finalCltv)
				if err != nil {
					break pathsCollection
				}
				if finished != nil {
					paymentPaths = append(paymentPaths, *finished)
					state.alreadyCollectedMsat += finished.valueMsat()
					foundNewPath = true
				}
				break
			}

			if n, ok := network.Node(node.pubKey); ok {
				if firstHopsRestricted {
					if hop, ok := firstHopTargets[node.pubKey]; ok {
						state.addVertice(
							hop.ShortChannelID, ourID, &node.pubKey,
							&DirectionalChannelInfo{}, nil, hop.Features,
							node.lowestFeeToNode,
						)
					}
				}
				state.selectWeightedVerticeToTargetEdge(n, &node.pubKey, node.lowestFeeToNode, firstHopsRestricted)
			}
		}

		if state.alreadyCollectedMsat >= recommendedValueMsat || !foundNewPath {
			break
		}
	}

	if len(paymentPaths) == 0 {
		return nil, ErrRouteUnreachable
	}
	if state.alreadyCollectedMsat < finalValueMsat {
		return nil, ErrRouteInsufficient
	}

	return combineRoute(paymentPaths, finalValueMsat), nil
}

// collectPath walks the parent chain starting at our own relaxed node,
// reconstructing an ordered path to the payee, computes its bottleneck
// value, and debits the bookkept liquidity of every channel it uses. It
// returns (nil, nil) if the path had to be abandoned mid-construction
// because a channel's liquidity was already exhausted by a previously
// collected path — the already-collected paths remain valid.
func (s *routingState) collectPath(
	ourID, payee *btcec.PublicKey, firstHopTargets map[btcec.PublicKey]FirstHop,
	finalValueMsat uint64, finalCltv uint32,
) (*paymentPath, error) {

	newEntry, ok := s.weightedVertices[*ourID]
	if !ok {
		return nil, nil
	}
	delete(s.weightedVertices, *ourID)

	orderedHops := []paymentHop{*newEntry}
	pathBottleneck := finalValueMsat * 10

	for {
		last := &orderedHops[len(orderedHops)-1]

		if hop, ok := firstHopTargets[*last.routeHop.PubKey]; ok {
			last.routeHop.NodeFeatures = hop.Features
		} else if node, ok := s.graph.Node(*last.routeHop.PubKey); ok {
			last.routeHop.NodeFeatures = node.Features
		}

		if newEntry.availableLiquidityMsat > newEntry.followingHopsFeesMsat {
			candidate := newEntry.availableLiquidityMsat - newEntry.followingHopsFeesMsat
			if candidate < pathBottleneck {
				pathBottleneck = candidate
			}
		} else {
			candidate := newEntry.availableLiquidityMsat / 10
			if candidate < pathBottleneck {
				pathBottleneck = candidate
			}
		}

		if *last.routeHop.PubKey == *payee {
			break
		}

		next, ok := s.weightedVertices[*last.routeHop.PubKey]
		if !ok {
			return nil, errPathBroken
		}
		delete(s.weightedVertices, *last.routeHop.PubKey)

		last.routeHop.FeeMsat = next.hopUseFeeMsat
		last.routeHop.CltvExpiryDelta = next.routeHop.CltvExpiryDelta
		orderedHops = append(orderedHops, *next)
		newEntry = next
	}

	orderedHops[len(orderedHops)-1].routeHop.FeeMsat = finalValueMsat
	orderedHops[len(orderedHops)-1].routeHop.CltvExpiryDelta = finalCltv

	path := paymentPath{hops: orderedHops}
	path.updateValueAndRecomputeFees(pathBottleneck)

	for _, hop := range path.hops {
		remaining := s.bookkeptLiquidity[hop.routeHop.ShortChannelID]
		paid := hop.getFeePaidMsat()
		if remaining < paid {
			return nil, nil
		}
		s.bookkeptLiquidity[hop.routeHop.ShortChannelID] = remaining - paid
	}

	return &path, nil
}

var errPathBroken = ErrRouteUnreachable

// combineRoute sorts the collected paths by total fee, keeps the cheapest
// maxCandidatePaths, then draws one candidate route per rotation of that
// list, trimming overpayment from the last path(s) added, and returns the
// cheapest candidate route overall.
func combineRoute(paths []paymentPath, finalValueMsat uint64) *Route {
	sort.Slice(paths, func(i, j int) bool {
		return paths[i].totalFeePaidMsat() < paths[j].totalFeePaidMsat()
	})
	if len(paths) > maxCandidatePaths {
		paths = paths[:maxCandidatePaths]
	}

	var bestRoute []paymentPath
	var bestFee uint64
	haveBest := false

	for i := range paths {
		rotated := make([]paymentPath, 0, len(paths))
		rotated = append(rotated, paths[i:]...)
		rotated = append(rotated, paths[:i]...)

		curRoute := make([]paymentPath, 0, len(rotated))
		var aggregate uint64

		for _, p := range rotated {
			curRoute = append(curRoute, p)
			aggregate += p.valueMsat()
			if aggregate >= finalValueMsat {
				curRoute = trimOverpayment(curRoute, aggregate-finalValueMsat)
				break
			}
		}

		var fee uint64
		for _, p := range curRoute {
			fee += p.totalFeePaidMsat()
		}
		if !haveBest || fee < bestFee {
			bestFee = fee
			bestRoute = curRoute
			haveBest = true
		}
	}

	selected := make([][]RouteHop, len(bestRoute))
	for i, p := range bestRoute {
		hops := make([]RouteHop, len(p.hops))
		for j, h := range p.hops {
			hops[j] = h.routeHop
		}
		selected[i] = hops
	}
	return &Route{Paths: selected}
}

// trimOverpayment drops the smallest-value paths whose value is covered by
// the overpayment, leaving at least one, then shaves any remaining
// overpayment off the path with the highest sum of proportional fee rates.
func trimOverpayment(route []paymentPath, overpaidValueMsat uint64) []paymentPath {
	sort.Slice(route, func(i, j int) bool {
		return route[i].valueMsat() < route[j].valueMsat()
	})

	kept := make([]paymentPath, 0, len(route))
	pathsLeft := len(route)
	for _, p := range route {
		if pathsLeft == 1 {
			kept = append(kept, p)
			continue
		}
		v := p.valueMsat()
		if v <= overpaidValueMsat {
			overpaidValueMsat -= v
			pathsLeft--
			continue
		}
		kept = append(kept, p)
	}

	if overpaidValueMsat == 0 {
		return kept
	}

	sort.Slice(kept, func(i, j int) bool {
		return sumProportionalPPM(kept[i]) < sumProportionalPPM(kept[j])
	})
	expensive := &kept[len(kept)-1]
	newValue := expensive.valueMsat() - overpaidValueMsat
	expensive.updateValueAndRecomputeFees(newValue)

	return kept
}

func sumProportionalPPM(p paymentPath) uint64 {
	var sum uint64
	for _, h := range p.hops {
		sum += uint64(h.channelFees.ProportionalMillionths)
	}
	return sum
}
