// Package routing implements a multi-path payee-to-payer route finder over
// a directed, weighted channel graph snapshot. It is the Go rendition of
// the pathfinding algorithm found in lightningnetwork/lnd's routing package
// and rust-lightning's routing::router, adapted from a boltdb-backed graph
// to a read-only in-memory NetworkGraph snapshot supplied by the caller.
package routing
