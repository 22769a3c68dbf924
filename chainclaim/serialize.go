package chainclaim

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/go-errors/errors"

	"github.com/lightninglabs/chanclaim/input"
)

// maxPreallocEntries caps how many entries a decoder will pre-size a map
// for, regardless of what a (possibly adversarial) length prefix claims.
// 64 KiB of entries at a conservative 128 bytes/entry lower bound.
const maxPreallocEntries = 64 * 1024 / 128

// ErrInvalidValue is returned for any malformed wire encoding, including an
// out-of-range variant tag.
var ErrInvalidValue = errors.New("chainclaim: invalid encoded value")

// Encode writes the wire representation of p: a one-byte variant tag
// followed by either an entry count and entry records (Malleable*) or a
// single outpoint/output record (Local*). Entries are emitted in map
// iteration order, which callers must not rely on: the set is orderless on
// the wire, and Decode accepts any order.
func (p *PackageTemplate) Encode(w io.Writer) error {
	if err := writeUint8(w, uint8(p.Kind)); err != nil {
		return err
	}

	switch p.Kind {
	case KindMalleableJustice:
		return encodeMalleable(w, p.Malleable, encodeRevokedEntry)
	case KindRemoteHTLC:
		return encodeMalleable(w, p.Malleable, encodeRemoteEntry)
	case KindLocalHTLC:
		out := p.LocalOutput.(*LocalHTLCOutput)
		if err := encodeOutpoint(w, p.LocalOutpoint); err != nil {
			return err
		}
		return encodeLocalHTLCOutput(w, out)
	case KindLocalCommitment:
		out := p.LocalOutput.(*LocalFundingOutput)
		if err := encodeOutpoint(w, p.LocalOutpoint); err != nil {
			return err
		}
		return encodeLocalFundingOutput(w, out)
	default:
		return errors.Errorf("chainclaim: cannot encode unknown kind %d", p.Kind)
	}
}

// Decode reads a PackageTemplate from r. Tags outside 0..3 are rejected as
// ErrInvalidValue.
func Decode(r io.Reader) (*PackageTemplate, error) {
	tag, err := readUint8(r)
	if err != nil {
		return nil, err
	}

	switch Kind(tag) {
	case KindMalleableJustice:
		m, err := decodeMalleable(r, decodeRevokedEntry)
		if err != nil {
			return nil, err
		}
		return &PackageTemplate{Kind: KindMalleableJustice, Malleable: m}, nil

	case KindRemoteHTLC:
		m, err := decodeMalleable(r, decodeRemoteEntry)
		if err != nil {
			return nil, err
		}
		return &PackageTemplate{Kind: KindRemoteHTLC, Malleable: m}, nil

	case KindLocalHTLC:
		op, err := decodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		out, err := decodeLocalHTLCOutput(r)
		if err != nil {
			return nil, err
		}
		return &PackageTemplate{Kind: KindLocalHTLC, LocalOutpoint: op, LocalOutput: out}, nil

	case KindLocalCommitment:
		op, err := decodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		out, err := decodeLocalFundingOutput(r)
		if err != nil {
			return nil, err
		}
		return &PackageTemplate{Kind: KindLocalCommitment, LocalOutpoint: op, LocalOutput: out}, nil

	default:
		return nil, ErrInvalidValue
	}
}

func encodeMalleable(
	w io.Writer, m map[input.Outpoint]malleableEntry,
	encodeEntry func(io.Writer, malleableEntry) error,
) error {

	if err := writeUint64(w, uint64(len(m))); err != nil {
		return err
	}
	for op, entry := range m {
		if err := encodeOutpoint(w, op); err != nil {
			return err
		}
		if err := encodeEntry(w, entry); err != nil {
			return err
		}
	}
	return nil
}

func decodeMalleable(
	r io.Reader, decodeEntry func(io.Reader) (malleableEntry, error),
) (map[input.Outpoint]malleableEntry, error) {

	count, err := readUint64(r)
	if err != nil {
		return nil, err
	}

	prealloc := count
	if prealloc > maxPreallocEntries {
		prealloc = maxPreallocEntries
	}
	m := make(map[input.Outpoint]malleableEntry, prealloc)

	for i := uint64(0); i < count; i++ {
		op, err := decodeOutpoint(r)
		if err != nil {
			return nil, err
		}
		entry, err := decodeEntry(r)
		if err != nil {
			return nil, err
		}
		m[op] = entry
	}
	return m, nil
}

func encodeRevokedEntry(w io.Writer, entry malleableEntry) error {
	out := entry.Revoked
	if err := encodePubKey(w, out.PerCommitmentPoint); err != nil {
		return err
	}
	if err := encodePubKey(w, out.RemoteDelayedPaymentBaseKey); err != nil {
		return err
	}
	if err := encodePubKey(w, out.RemoteHTLCBaseKey); err != nil {
		return err
	}
	if err := encodePrivKey(w, out.PerCommitmentKey); err != nil {
		return err
	}
	if err := writeUint8(w, uint8(out.InputDescriptor)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(out.Amount)); err != nil {
		return err
	}
	if err := writeUint16(w, out.OnRemoteTxCSV); err != nil {
		return err
	}
	return encodeOptionalHTLC(w, out.HTLC)
}

func decodeRevokedEntry(r io.Reader) (malleableEntry, error) {
	out := &RevokedOutput{}
	var err error

	if out.PerCommitmentPoint, err = decodePubKey(r); err != nil {
		return malleableEntry{}, err
	}
	if out.RemoteDelayedPaymentBaseKey, err = decodePubKey(r); err != nil {
		return malleableEntry{}, err
	}
	if out.RemoteHTLCBaseKey, err = decodePubKey(r); err != nil {
		return malleableEntry{}, err
	}
	if out.PerCommitmentKey, err = decodePrivKey(r); err != nil {
		return malleableEntry{}, err
	}

	descTag, err := readUint8(r)
	if err != nil {
		return malleableEntry{}, err
	}
	out.InputDescriptor = input.InputDescriptor(descTag)
	if !out.InputDescriptor.Valid() {
		return malleableEntry{}, ErrInvalidValue
	}

	amount, err := readUint64(r)
	if err != nil {
		return malleableEntry{}, err
	}
	out.Amount = btcutil.Amount(amount)

	if out.OnRemoteTxCSV, err = readUint16(r); err != nil {
		return malleableEntry{}, err
	}
	if out.HTLC, err = decodeOptionalHTLC(r); err != nil {
		return malleableEntry{}, err
	}

	return malleableEntry{Revoked: out}, nil
}

func encodeRemoteEntry(w io.Writer, entry malleableEntry) error {
	out := entry.Remote
	if err := encodePubKey(w, out.PerCommitmentPoint); err != nil {
		return err
	}
	if err := encodePubKey(w, out.RemoteDelayedPaymentBaseKey); err != nil {
		return err
	}
	if err := encodePubKey(w, out.RemoteHTLCBaseKey); err != nil {
		return err
	}
	if err := encodeOptionalPreimage(w, out.Preimage); err != nil {
		return err
	}
	return encodeHTLC(w, out.HTLC)
}

func decodeRemoteEntry(r io.Reader) (malleableEntry, error) {
	out := &RemoteHTLCOutput{}
	var err error

	if out.PerCommitmentPoint, err = decodePubKey(r); err != nil {
		return malleableEntry{}, err
	}
	if out.RemoteDelayedPaymentBaseKey, err = decodePubKey(r); err != nil {
		return malleableEntry{}, err
	}
	if out.RemoteHTLCBaseKey, err = decodePubKey(r); err != nil {
		return malleableEntry{}, err
	}
	if out.Preimage, err = decodeOptionalPreimage(r); err != nil {
		return malleableEntry{}, err
	}
	htlc, err := decodeHTLC(r)
	if err != nil {
		return malleableEntry{}, err
	}
	out.HTLC = htlc

	return malleableEntry{Remote: out}, nil
}

func encodeLocalHTLCOutput(w io.Writer, out *LocalHTLCOutput) error {
	if err := encodeOptionalPreimage(w, out.Preimage); err != nil {
		return err
	}
	return writeUint64(w, uint64(out.Amount))
}

func decodeLocalHTLCOutput(r io.Reader) (*LocalHTLCOutput, error) {
	preimage, err := decodeOptionalPreimage(r)
	if err != nil {
		return nil, err
	}
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &LocalHTLCOutput{Preimage: preimage, Amount: btcutil.Amount(amount)}, nil
}

func encodeLocalFundingOutput(w io.Writer, out *LocalFundingOutput) error {
	return encodeBytes(w, out.FundingRedeemScript)
}

func decodeLocalFundingOutput(r io.Reader) (*LocalFundingOutput, error) {
	script, err := decodeBytes(r)
	if err != nil {
		return nil, err
	}
	return &LocalFundingOutput{FundingRedeemScript: script}, nil
}

func encodeHTLC(w io.Writer, htlc input.HTLCOutputInCommitment) error {
	var offered uint8
	if htlc.Offered {
		offered = 1
	}
	if err := writeUint8(w, offered); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(htlc.AmountMsat)); err != nil {
		return err
	}
	if err := writeUint32(w, htlc.CltvExpiry); err != nil {
		return err
	}
	_, err := w.Write(htlc.PaymentHash[:])
	return err
}

func decodeHTLC(r io.Reader) (input.HTLCOutputInCommitment, error) {
	var htlc input.HTLCOutputInCommitment

	offered, err := readUint8(r)
	if err != nil {
		return htlc, err
	}
	htlc.Offered = offered == 1

	amt, err := readUint64(r)
	if err != nil {
		return htlc, err
	}
	htlc.AmountMsat = input.MilliSatoshi(amt)

	if htlc.CltvExpiry, err = readUint32(r); err != nil {
		return htlc, err
	}
	if _, err := io.ReadFull(r, htlc.PaymentHash[:]); err != nil {
		return htlc, err
	}
	return htlc, nil
}

func encodeOptionalHTLC(w io.Writer, htlc *input.HTLCOutputInCommitment) error {
	if htlc == nil {
		return writeUint8(w, 0)
	}
	if err := writeUint8(w, 1); err != nil {
		return err
	}
	return encodeHTLC(w, *htlc)
}

func decodeOptionalHTLC(r io.Reader) (*input.HTLCOutputInCommitment, error) {
	present, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	htlc, err := decodeHTLC(r)
	if err != nil {
		return nil, err
	}
	return &htlc, nil
}

func encodeOptionalPreimage(w io.Writer, preimage *[32]byte) error {
	if preimage == nil {
		return writeUint8(w, 0)
	}
	if err := writeUint8(w, 1); err != nil {
		return err
	}
	_, err := w.Write(preimage[:])
	return err
}

func decodeOptionalPreimage(r io.Reader) (*[32]byte, error) {
	present, err := readUint8(r)
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	var preimage [32]byte
	if _, err := io.ReadFull(r, preimage[:]); err != nil {
		return nil, err
	}
	return &preimage, nil
}

func encodeOutpoint(w io.Writer, op input.Outpoint) error {
	if _, err := w.Write(op.Txid[:]); err != nil {
		return err
	}
	return writeUint32(w, op.Vout)
}

func decodeOutpoint(r io.Reader) (input.Outpoint, error) {
	var op input.Outpoint
	if _, err := io.ReadFull(r, op.Txid[:]); err != nil {
		return op, err
	}
	vout, err := readUint32(r)
	if err != nil {
		return op, err
	}
	op.Vout = vout
	return op, nil
}

func encodePubKey(w io.Writer, pub *btcec.PublicKey) error {
	_, err := w.Write(pub.SerializeCompressed())
	return err
}

func decodePubKey(r io.Reader) (*btcec.PublicKey, error) {
	b, err := decodeFixedBytes(r, 33)
	if err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(b)
}

func encodePrivKey(w io.Writer, priv *btcec.PrivateKey) error {
	b := priv.Serialize()
	_, err := w.Write(b)
	return err
}

func decodePrivKey(r io.Reader) (*btcec.PrivateKey, error) {
	b, err := decodeFixedBytes(r, 32)
	if err != nil {
		return nil, err
	}
	priv, _ := btcec.PrivKeyFromBytes(b)
	return priv, nil
}

func encodeBytes(w io.Writer, b []byte) error {
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func decodeBytes(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func decodeFixedBytes(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeUint8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeUint16(w io.Writer, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b[:]), nil
}
