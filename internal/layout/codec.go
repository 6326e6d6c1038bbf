// Package layout decodes and encodes the fixed little-endian account layouts
// of the venue program.
package layout

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Account type tags stored in the first four bytes of every program account.
const (
	AccountTypeRoot             uint32 = 1
	AccountTypeCommunity        uint32 = 3
	AccountTypeToken            uint32 = 4
	AccountTypeInstrument       uint32 = 12
	AccountTypeSpotBidsTree     uint32 = 13
	AccountTypeSpotAsksTree     uint32 = 14
	AccountTypeSpotBidOrders    uint32 = 15
	AccountTypeSpotAskOrders    uint32 = 16
	AccountTypeSpotLines        uint32 = 17
	AccountTypeSpotMaps         uint32 = 18
	AccountTypeSpotClientInfos  uint32 = 19
	AccountTypeSpotClientInfos2 uint32 = 20
	AccountTypeSpot1MCandles    uint32 = 21
	AccountTypeSpot15MCandles   uint32 = 22
	AccountTypeSpotDayCandles   uint32 = 23
)

// Version is the only layout version this package understands.
const Version uint32 = 1

const (
	// TokenSize is the exact size of a token state account.
	TokenSize = 96
	// InstrumentHeaderSize is the minimum size of an instrument account.
	// Order-book data may follow the header.
	InstrumentHeaderSize = 176

	// PriceScale is the fixed-point scale of instrument prices.
	PriceScale int64 = 1_000_000_000
	// FeeScale is the denominator of FeeRate (parts per million).
	FeeScale uint32 = 1_000_000
	// BpsScale is the denominator of basis-point fields.
	BpsScale uint32 = 10_000

	// MaxDecimals bounds the decimal exponent a token record may carry.
	MaxDecimals uint8 = 18
)

// reader is a bin.Decoder with a sticky error so field reads stay flat.
type reader struct {
	dec *bin.Decoder
	err error
}

func newReader(data []byte) *reader {
	return &reader{dec: bin.NewBinDecoder(data)}
}

func (r *reader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *reader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(bin.LE)
	r.err = err
	return v
}

func (r *reader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(bin.LE)
	r.err = err
	return v
}

func (r *reader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt64(bin.LE)
	r.err = err
	return v
}

func (r *reader) key() solana.PublicKey {
	if r.err != nil {
		return solana.PublicKey{}
	}
	b, err := r.dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		r.err = err
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(b)
}

func (r *reader) skip(n int) {
	if r.err != nil {
		return
	}
	_, r.err = r.dec.ReadNBytes(n)
}

type writer struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func newWriter(size int) *writer {
	w := &writer{}
	w.buf.Grow(size)
	w.enc = bin.NewBinEncoder(&w.buf)
	return w
}

func (w *writer) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *writer) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(v, bin.LE)
	}
}

func (w *writer) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, bin.LE)
	}
}

func (w *writer) i64(v int64) {
	if w.err == nil {
		w.err = w.enc.WriteInt64(v, bin.LE)
	}
}

func (w *writer) key(k solana.PublicKey) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(k[:], false)
	}
}

func (w *writer) zero(n int) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(make([]byte, n), false)
	}
}

func (w *writer) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}
