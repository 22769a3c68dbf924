package routing

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// testNode is a convenience wrapper bundling a synthetic node's identity key
// with its NodeInfo, modeled on the alias/pubkey pairing pathfind_test.go
// uses to build small benchmark graphs from readable names.
type testNode struct {
	alias string
	priv  *btcec.PrivateKey
	pub   *btcec.PublicKey
}

func newTestNode(t *testing.T, alias string) testNode {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return testNode{alias: alias, priv: priv, pub: priv.PubKey()}
}

func addNode(graph *NetworkGraph, n testNode) {
	graph.AddNode(&NodeInfo{PubKey: n.pub})
}

func addChannel(
	graph *NetworkGraph, scid uint64, a, b testNode,
	capacity btcutil.Amount, fees RoutingFees, cltvDelta uint16, enabled bool,
) {
	dir := &DirectionalChannelInfo{
		Enabled:         enabled,
		CltvExpiryDelta: cltvDelta,
		Fees:            fees,
	}
	graph.AddChannel(&ChannelInfo{
		ShortChannelID: scid,
		NodeOne:        a.pub,
		NodeTwo:        b.pub,
		CapacitySats:   &capacity,
		OneToTwo:       dir,
		TwoToOne:       dir,
	})
}

// simpleGraph builds us -> node1 -> node2, a three-node, two-channel chain
// matching the shape of the specification's basic benchmark graph.
func simpleGraph(t *testing.T) (graph *NetworkGraph, us, node1, node2 testNode) {
	t.Helper()

	us = newTestNode(t, "us")
	node1 = newTestNode(t, "node1")
	node2 = newTestNode(t, "node2")

	graph = NewNetworkGraph()
	for _, n := range []testNode{us, node1, node2} {
		addNode(graph, n)
	}

	addChannel(graph, 2, us, node1, 1_000_000, RoutingFees{BaseMsat: 0, ProportionalMillionths: 0}, 4, true)
	addChannel(graph, 4, node1, node2, 1_000_000, RoutingFees{BaseMsat: 100, ProportionalMillionths: 0}, 40, true)

	return graph, us, node1, node2
}

func TestGetRouteSimplePathInvariants(t *testing.T) {
	graph, us, _, node2 := simpleGraph(t)

	const finalValueMsat = 100_000
	const finalCltv = 42

	route, err := GetRoute(us.pub, graph, node2.pub, nil, nil, finalValueMsat, finalCltv)
	require.NoError(t, err)
	require.NotEmpty(t, route.Paths)

	var totalDelivered uint64
	for _, path := range route.Paths {
		require.NotEmpty(t, path)
		last := path[len(path)-1]
		require.True(t, last.PubKey.IsEqual(node2.pub))
		require.EqualValues(t, finalCltv, last.CltvExpiryDelta)
		totalDelivered += last.FeeMsat
	}
	require.EqualValues(t, finalValueMsat, totalDelivered)
}

func TestGetRouteDisabledChannelIsUnreachable(t *testing.T) {
	graph, us, node1, node2 := simpleGraph(t)

	// Disable the only channel leading into the payee.
	chanInfo, ok := graph.Channel(4)
	require.True(t, ok)
	chanInfo.OneToTwo.Enabled = false
	chanInfo.TwoToOne.Enabled = false
	_ = node1

	_, err := GetRoute(us.pub, graph, node2.pub, nil, nil, 100_000, 42)
	require.ErrorIs(t, err, ErrRouteUnreachable)
}

func TestGetRouteToSelfRejected(t *testing.T) {
	graph, us, _, _ := simpleGraph(t)

	_, err := GetRoute(us.pub, graph, us.pub, nil, nil, 1000, 40)
	require.ErrorIs(t, err, ErrRouteToSelf)
}

func TestGetRouteValueTooLargeRejected(t *testing.T) {
	graph, us, _, node2 := simpleGraph(t)

	_, err := GetRoute(us.pub, graph, node2.pub, nil, nil, MaxValueMsat+1, 40)
	require.ErrorIs(t, err, ErrValueTooLarge)
}

func TestGetRouteInsufficientLiquidity(t *testing.T) {
	graph, us, node1, node2 := simpleGraph(t)

	// Shrink the bottleneck channel's capacity far below the requested
	// value so the aggregate collected liquidity cannot meet it.
	chanInfo, ok := graph.Channel(4)
	require.True(t, ok)
	small := uint64(1_000)
	chanInfo.OneToTwo.HtlcMaximumMsat = &small
	chanInfo.TwoToOne.HtlcMaximumMsat = &small
	_ = node1

	_, err := GetRoute(us.pub, graph, node2.pub, nil, nil, 10_000_000, 42)
	require.Error(t, err)
}

func TestFirstHopOverride(t *testing.T) {
	graph, us, _, node2 := simpleGraph(t)
	node7 := newTestNode(t, "node7")
	addNode(graph, node7)
	addChannel(graph, 13, node7, node2, 1_000_000, RoutingFees{BaseMsat: 100, ProportionalMillionths: 0}, 13, true)

	firstHops := []FirstHop{{RemoteNodeID: node7.pub, ShortChannelID: 42, Features: FeatureVector{}}}

	route, err := GetRoute(us.pub, graph, node2.pub, firstHops, nil, 100_000, 42)
	require.NoError(t, err)
	require.NotEmpty(t, route.Paths)

	first := route.Paths[0][0]
	require.True(t, first.PubKey.IsEqual(node7.pub))
	require.EqualValues(t, 42, first.ShortChannelID)
}
