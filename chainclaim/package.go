package chainclaim

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"

	"github.com/lightninglabs/chanclaim/input"
)

// Kind tags the variant a PackageTemplate holds. Dynamic dispatch over an
// interface would make the wire format depend on which concrete type a
// decoder happened to allocate; a single tagged struct keeps encode/decode
// deterministic and keeps merge/split from ever being called against the
// wrong variant without an explicit check.
type Kind uint8

const (
	// KindMalleableJustice claims a set of revoked commitment outputs in
	// a single, freely re-combinable justice transaction.
	KindMalleableJustice Kind = iota

	// KindRemoteHTLC claims a single HTLC output on the counterparty's
	// current (non-revoked) commitment transaction.
	KindRemoteHTLC

	// KindLocalHTLC claims a single second-stage HTLC output on our own
	// commitment; the spending transaction is pre-signed by the
	// counterparty and is finalized entirely by the signer.
	KindLocalHTLC

	// KindLocalCommitment claims our own commitment's funding output,
	// already pre-signed by the counterparty.
	KindLocalCommitment
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindMalleableJustice:
		return "malleable_justice"
	case KindRemoteHTLC:
		return "remote_htlc"
	case KindLocalHTLC:
		return "local_htlc"
	case KindLocalCommitment:
		return "local_commitment"
	default:
		return "unknown"
	}
}

// PackageTemplate is a typed claim descriptor over one of four variants. The
// Malleable* variant carries a nonempty map of outpoint to revoked output and
// supports merge/split; the Local* variants carry exactly one outpoint/output
// pair and do not.
//
// Only one of the payload fields is populated, selected by Kind; the
// constructors below are the only supported way to build a valid value.
type PackageTemplate struct {
	Kind Kind

	// Malleable holds the outputs for KindMalleableJustice and
	// KindRemoteHTLC, keyed by the outpoint each output sits on.
	Malleable map[input.Outpoint]malleableEntry

	// LocalOutpoint and LocalOutput hold the single claim for
	// KindLocalHTLC and KindLocalCommitment.
	LocalOutpoint input.Outpoint
	LocalOutput   interface{}
}

// malleableEntry is either a *RevokedOutput (KindMalleableJustice) or a
// *RemoteHTLCOutput (KindRemoteHTLC), never both within the same package.
type malleableEntry struct {
	Revoked *RevokedOutput
	Remote  *RemoteHTLCOutput
}

// NewMalleableJusticePackage builds a KindMalleableJustice package from a
// nonempty set of revoked outputs.
func NewMalleableJusticePackage(outputs map[input.Outpoint]*RevokedOutput) (*PackageTemplate, error) {
	if len(outputs) == 0 {
		return nil, errors.New("chainclaim: malleable justice package requires at least one output")
	}
	m := make(map[input.Outpoint]malleableEntry, len(outputs))
	for op, out := range outputs {
		m[op] = malleableEntry{Revoked: out}
	}
	return &PackageTemplate{Kind: KindMalleableJustice, Malleable: m}, nil
}

// NewRemoteHTLCPackage builds a KindRemoteHTLC package from a nonempty set of
// remote HTLC claims.
func NewRemoteHTLCPackage(outputs map[input.Outpoint]*RemoteHTLCOutput) (*PackageTemplate, error) {
	if len(outputs) == 0 {
		return nil, errors.New("chainclaim: remote htlc package requires at least one output")
	}
	m := make(map[input.Outpoint]malleableEntry, len(outputs))
	for op, out := range outputs {
		m[op] = malleableEntry{Remote: out}
	}
	return &PackageTemplate{Kind: KindRemoteHTLC, Malleable: m}, nil
}

// NewLocalHTLCPackage builds a KindLocalHTLC package for a single second-stage
// HTLC output.
func NewLocalHTLCPackage(op input.Outpoint, out *LocalHTLCOutput) *PackageTemplate {
	return &PackageTemplate{Kind: KindLocalHTLC, LocalOutpoint: op, LocalOutput: out}
}

// NewLocalCommitmentPackage builds a KindLocalCommitment package for our own
// commitment's funding output.
func NewLocalCommitmentPackage(op input.Outpoint, out *LocalFundingOutput) *PackageTemplate {
	return &PackageTemplate{Kind: KindLocalCommitment, LocalOutpoint: op, LocalOutput: out}
}

func (p *PackageTemplate) isMalleable() bool {
	return p.Kind == KindMalleableJustice || p.Kind == KindRemoteHTLC
}

// Outpoints returns the ordered list of outpoints claimed by the package: one
// for a Local* variant, one or more for a Malleable* variant. The order is
// not significant to correctness (the set is orderless on the wire) but is
// made deterministic here for test reproducibility.
func (p *PackageTemplate) Outpoints() []input.Outpoint {
	if !p.isMalleable() {
		return []input.Outpoint{p.LocalOutpoint}
	}
	ops := make([]input.Outpoint, 0, len(p.Malleable))
	for op := range p.Malleable {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if c := bytes.Compare(ops[i].Txid[:], ops[j].Txid[:]); c != 0 {
			return c < 0
		}
		return ops[i].Vout < ops[j].Vout
	})
	return ops
}

// Split removes the named outpoint from a Malleable* package and returns a
// fresh single-entry package of the same variant. Calling Split on a Local*
// package is a programmer error: those variants carry exactly one entry and
// have nothing to split.
func (p *PackageTemplate) Split(op input.Outpoint) *PackageTemplate {
	if !p.isMalleable() {
		panic("chainclaim: package_split called on a non-malleable package")
	}
	entry, ok := p.Malleable[op]
	if !ok {
		panic("chainclaim: package_split called with an outpoint not in the package")
	}
	delete(p.Malleable, op)
	return &PackageTemplate{
		Kind:      p.Kind,
		Malleable: map[input.Outpoint]malleableEntry{op: entry},
	}
}

// Merge drains other's mapping into p. Both packages must be the Malleable*
// variant and must share the same Kind; any mismatch is a programmer error.
func (p *PackageTemplate) Merge(other *PackageTemplate) {
	if !p.isMalleable() || !other.isMalleable() {
		panic("chainclaim: package_merge called on a non-malleable package")
	}
	if p.Kind != other.Kind {
		panic(fmt.Sprintf("chainclaim: package_merge variant mismatch: %s vs %s", p.Kind, other.Kind))
	}
	for op, entry := range other.Malleable {
		p.Malleable[op] = entry
	}
}

// Amounts sums the claimable satoshi value across the package: amount on a
// revoked output, htlc.amount_msat/1000 on a remote HTLC claim, zero for
// Local* variants whose value is opaque to the claim engine.
func (p *PackageTemplate) Amounts() btcutil.Amount {
	if !p.isMalleable() {
		return 0
	}
	var total btcutil.Amount
	for _, entry := range p.Malleable {
		switch {
		case entry.Revoked != nil:
			total += entry.Revoked.Amount
		case entry.Remote != nil:
			total += entry.Remote.HTLC.AmountMsat.ToSatoshis()
		}
	}
	return total
}

// Weight predicts the transaction weight assuming one destination output
// (P2WSH or P2WPKH, inferred from destinationScript's length) plus the
// segwit marker/flag and the tabulated witness weight of every input.
// Local* variants return 0: those transactions have fixed, externally-signed
// weight that this package has no visibility into.
func (p *PackageTemplate) Weight(destinationScript []byte) (int64, error) {
	if !p.isMalleable() {
		return 0, nil
	}

	skeleton := wire.NewMsgTx(2)
	for op := range p.Malleable {
		skeleton.AddTxIn(&wire.TxIn{PreviousOutPoint: op.Wire(), Sequence: 0xfffffffd})
	}
	skeleton.AddTxOut(&wire.TxOut{Value: 0, PkScript: destinationScript})

	descs := make([]input.InputDescriptor, 0, len(p.Malleable))
	for _, entry := range p.Malleable {
		switch {
		case entry.Revoked != nil:
			descs = append(descs, entry.Revoked.InputDescriptor)
		case entry.Remote != nil:
			descs = append(descs, remoteHTLCDescriptor(entry.Remote))
		}
	}
	witnessWeight, err := input.SumWitnessWeight(descs)
	if err != nil {
		return 0, err
	}

	baseWeight := int64(skeleton.SerializeSizeStripped()) * blockchain.WitnessScaleFactor
	return baseWeight + int64(witnessWeight), nil
}

func remoteHTLCDescriptor(out *RemoteHTLCOutput) input.InputDescriptor {
	if out.HTLC.Offered {
		return input.OfferedHTLC
	}
	return input.ReceivedHTLC
}

// Finalize constructs a signed, broadcastable transaction for the package,
// or returns (nil, nil) if the signer declined to sign any input (a
// SignerFailure per the error-handling design — not an error return, since
// "no transaction was produced" is an expected outcome the caller must
// tolerate).
func (p *PackageTemplate) Finalize(
	signer Signer,
	outputValue btcutil.Amount,
	destinationScript []byte,
) (*wire.MsgTx, error) {

	switch p.Kind {
	case KindMalleableJustice, KindRemoteHTLC:
		return p.finalizeMalleable(signer, outputValue, destinationScript)
	case KindLocalHTLC:
		out := p.LocalOutput.(*LocalHTLCOutput)
		tx, err := signer.GetFullySignedHTLCTx(p.LocalOutpoint, out.Preimage)
		if err != nil {
			log.Debugf("chainclaim: signer declined local htlc tx: %v", err)
			return nil, nil
		}
		return tx, nil
	case KindLocalCommitment:
		out := p.LocalOutput.(*LocalFundingOutput)
		tx, err := signer.GetFullySignedLocalTx(out.FundingRedeemScript)
		if err != nil {
			log.Debugf("chainclaim: signer declined local commitment tx: %v", err)
			return nil, nil
		}
		return tx, nil
	default:
		return nil, errors.Errorf("chainclaim: unknown package kind %d", p.Kind)
	}
}

func (p *PackageTemplate) finalizeMalleable(
	signer Signer,
	outputValue btcutil.Amount,
	destinationScript []byte,
) (*wire.MsgTx, error) {

	tx := wire.NewMsgTx(2)
	tx.AddTxOut(&wire.TxOut{Value: int64(outputValue), PkScript: destinationScript})

	type pendingInput struct {
		op    input.Outpoint
		entry malleableEntry
	}
	inputs := make([]pendingInput, 0, len(p.Malleable))
	for op, entry := range p.Malleable {
		inputs = append(inputs, pendingInput{op: op, entry: entry})
		tx.AddTxIn(&wire.TxIn{PreviousOutPoint: op.Wire(), Sequence: 0xfffffffd})
	}

	var lockTime uint32
	for idx, in := range inputs {
		var (
			witness wire.TxWitness
			err     error
		)
		switch {
		case in.entry.Revoked != nil:
			witness, err = finalizeRevoked(signer, tx, idx, in.entry.Revoked)
		case in.entry.Remote != nil:
			var htlcLockTime uint32
			witness, htlcLockTime, err = finalizeRemoteHTLC(signer, tx, idx, in.entry.Remote)
			if htlcLockTime > lockTime {
				lockTime = htlcLockTime
			}
		}
		if err != nil {
			log.Debugf("chainclaim: signer declined input %d of package: %v", idx, err)
			return nil, nil
		}
		tx.TxIn[idx].Witness = witness
	}
	tx.LockTime = lockTime

	return tx, nil
}

func finalizeRevoked(signer Signer, tx *wire.MsgTx, idx int, out *RevokedOutput) (wire.TxWitness, error) {
	sig, err := signer.SignJusticeTransaction(
		tx, idx, out.Amount, out.PerCommitmentKey, out.HTLC, out.OnRemoteTxCSV,
	)
	if err != nil {
		return nil, err
	}

	witnessScript, err := revokedWitnessScript(out)
	if err != nil {
		return nil, err
	}

	var branchSelector []byte
	if out.HTLC != nil {
		revocationPub := out.PerCommitmentKey.PubKey().SerializeCompressed()
		branchSelector = revocationPub
	} else {
		branchSelector = []byte{txscript.OP_1}
	}

	return wire.TxWitness{sig, branchSelector, witnessScript}, nil
}

func finalizeRemoteHTLC(signer Signer, tx *wire.MsgTx, idx int, out *RemoteHTLCOutput) (wire.TxWitness, uint32, error) {
	sig, err := signer.SignRemoteHTLCTransaction(
		tx, idx, out.HTLC.AmountMsat.ToSatoshis(), out.PerCommitmentPoint, out.HTLC,
	)
	if err != nil {
		return nil, 0, err
	}

	witnessScript, err := remoteHTLCWitnessScript(out)
	if err != nil {
		return nil, 0, err
	}

	if out.Preimage != nil {
		return wire.TxWitness{sig, out.Preimage[:], witnessScript}, 0, nil
	}
	return wire.TxWitness{sig, nil, witnessScript}, out.HTLC.CltvExpiry, nil
}
