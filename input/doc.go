// Package input describes the claimable outputs that appear on Lightning
// commitment and second-stage transactions: their on-chain identity (an
// Outpoint), which witness template applies to them (an InputDescriptor),
// and the expected weight of satisfying that witness. It is the leaf
// package of the claim engine — chainclaim builds package templates out of
// these primitives.
package input
