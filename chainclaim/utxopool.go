package chainclaim

import (
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/go-errors/errors"

	"github.com/lightninglabs/chanclaim/chainfee"
	"github.com/lightninglabs/chanclaim/input"
)

// ErrAlreadyAllocated is returned by a UtxoPool implementation's allocation
// path when an outpoint that is already attached to an in-flight CPFP child
// is requested again before being freed.
var ErrAlreadyAllocated = errors.New("chainclaim: utxo already allocated")

// UtxoPool is the wallet-UTXO-selection capability the claim engine consumes
// when a package needs a fee-bearing input to attach as a CPFP child.
// Implementations must enforce at-most-one concurrent allocation per
// outpoint; the core never inspects wallet state directly.
type UtxoPool interface {
	// MapUTXO earmarks a reserve against a newly opened channel's
	// provision, so the pool can later satisfy CPFP requests for claims
	// against that channel without touching the general wallet balance.
	MapUTXO(channelProvision btcutil.Amount)

	// AllocateUTXO returns a fee-bearing outpoint (and the TxOut it
	// references) large enough to fund requiredFee once attached to a
	// CPFP child, or ok=false if no suitable UTXO is free.
	AllocateUTXO(requiredFee btcutil.Amount) (op input.Outpoint, bumpingOutput *wire.TxOut, ok bool, err error)

	// FreeUTXO releases a previously allocated fee UTXO, called on reorg
	// or when the counterparty spends the parent transaction first.
	FreeUTXO(op input.Outpoint)

	// SignUTXO signs the pool's input at inputIndex within tx, a CPFP
	// child transaction.
	SignUTXO(tx *wire.MsgTx, inputIndex int) error
}

// utxoEntry is a single wallet output the pool may offer up as a CPFP
// bumping input.
type utxoEntry struct {
	outpoint input.Outpoint
	output   *wire.TxOut
	signer   func(tx *wire.MsgTx, inputIndex int) error
}

// ReservePool is a reference UtxoPool backed by an in-memory set of wallet
// outputs, guarded by a mutex so that allocate/free calls arriving from
// concurrent broadcast-tick goroutines never double-allocate the same
// outpoint — mirroring the single allocation-at-a-time discipline the sweep
// package's input-set partitioning assumes of its caller.
type ReservePool struct {
	mu sync.Mutex

	free      []utxoEntry
	allocated map[input.Outpoint]utxoEntry

	reserved btcutil.Amount
}

// NewReservePool returns an empty reference UTXO pool.
func NewReservePool() *ReservePool {
	return &ReservePool{
		allocated: make(map[input.Outpoint]utxoEntry),
	}
}

// AddUTXO registers a spendable wallet output as available for future CPFP
// allocation. This is test/integration scaffolding the capability interface
// itself has no opinion on — real implementations populate their free list
// from the wallet's UTXO set however they see fit.
func (p *ReservePool) AddUTXO(op input.Outpoint, output *wire.TxOut, signer func(tx *wire.MsgTx, inputIndex int) error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.free = append(p.free, utxoEntry{outpoint: op, output: output, signer: signer})
}

// MapUTXO implements UtxoPool.
func (p *ReservePool) MapUTXO(channelProvision btcutil.Amount) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.reserved += channelProvision
}

// dustLimit is the minimum value a P2WPKH change output left over after a
// CPFP allocation may carry; any smaller remainder is unspendable dust the
// allocation must not produce. Computed the way sweep/txgenerator.go sizes
// its own sweep-output dust limit: from the output script size and the
// network's minimum relay feerate expressed per KvB.
var dustLimit = txrules.GetDustThreshold(
	input.P2WPKHSize, chainfee.MinRelayFeeSatPerKW.FeePerKVByte(),
)

// AllocateUTXO implements UtxoPool. It picks the smallest free output whose
// value still covers requiredFee, to avoid needlessly tying up large UTXOs
// for small bumps, and skips any candidate that would otherwise leave a
// dust-sized, unspendable remainder behind.
func (p *ReservePool) AllocateUTXO(requiredFee btcutil.Amount) (input.Outpoint, *wire.TxOut, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bestIdx := -1
	for i, entry := range p.free {
		value := btcutil.Amount(entry.output.Value)
		if value < requiredFee {
			continue
		}
		if remainder := value - requiredFee; remainder != 0 && remainder < dustLimit {
			continue
		}
		if bestIdx == -1 || entry.output.Value < p.free[bestIdx].output.Value {
			bestIdx = i
		}
	}
	if bestIdx == -1 {
		return input.Outpoint{}, nil, false, nil
	}

	entry := p.free[bestIdx]
	if _, exists := p.allocated[entry.outpoint]; exists {
		return input.Outpoint{}, nil, false, ErrAlreadyAllocated
	}

	p.free = append(p.free[:bestIdx], p.free[bestIdx+1:]...)
	p.allocated[entry.outpoint] = entry

	return entry.outpoint, entry.output, true, nil
}

// FreeUTXO implements UtxoPool.
func (p *ReservePool) FreeUTXO(op input.Outpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.allocated[op]
	if !ok {
		return
	}
	delete(p.allocated, op)
	p.free = append(p.free, entry)
}

// SignUTXO implements UtxoPool.
func (p *ReservePool) SignUTXO(tx *wire.MsgTx, inputIndex int) error {
	p.mu.Lock()
	op := tx.TxIn[inputIndex].PreviousOutPoint
	entry, ok := p.allocated[input.NewOutpoint(op.Hash, op.Index)]
	p.mu.Unlock()

	if !ok {
		return errors.Errorf("chainclaim: no allocated utxo for input %d", inputIndex)
	}
	return entry.signer(tx, inputIndex)
}
