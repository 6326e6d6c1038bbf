package layout

import (
	"fmt"

	"drv_adapter/internal/domain"

	"github.com/gagliardetto/solana-go"
)

// CurveKind selects the pricing function of an instrument.
type CurveKind uint8

const (
	// CurveFixedPrice fills at the clamped market price with a spread.
	CurveFixedPrice CurveKind = 0
	// CurveConstantProduct fills along x*y=k over the instrument reserves.
	CurveConstantProduct CurveKind = 1
)

func (c CurveKind) String() string {
	switch c {
	case CurveFixedPrice:
		return "fixed_price"
	case CurveConstantProduct:
		return "constant_product"
	default:
		return fmt.Sprintf("curve(%d)", uint8(c))
	}
}

// Instrument is the header of a spot instrument account. Prices are whole
// currency per whole asset scaled by PriceScale; reserves are raw units.
type Instrument struct {
	Version         uint32
	ID              uint32
	AssetTokenID    uint32
	CurrencyTokenID uint32
	Curve           CurveKind
	AssetMint       solana.PublicKey
	CurrencyMint    solana.PublicKey
	MapsAddress     solana.PublicKey
	LastPx          int64
	BestBid         int64 // 0 when the bid side is empty
	BestAsk         int64 // 0 when the ask side is empty
	AssetTokens     int64
	CurrencyTokens  int64
	FeeRate         uint32 // parts per FeeScale of the input amount
	SpreadBps       uint32
}

// DecodeInstrument parses the instrument header. Bytes past
// InstrumentHeaderSize are ignored.
func DecodeInstrument(data []byte) (Instrument, error) {
	if len(data) < InstrumentHeaderSize {
		return Instrument{}, fmt.Errorf("%w: instrument account is %d bytes, want at least %d", domain.ErrMalformedAccount, len(data), InstrumentHeaderSize)
	}

	r := newReader(data[:InstrumentHeaderSize])
	tag := r.u32()
	in := Instrument{
		Version:         r.u32(),
		ID:              r.u32(),
		AssetTokenID:    r.u32(),
		CurrencyTokenID: r.u32(),
		Curve:           CurveKind(r.u8()),
	}
	r.skip(3)
	in.AssetMint = r.key()
	in.CurrencyMint = r.key()
	in.MapsAddress = r.key()
	in.LastPx = r.i64()
	in.BestBid = r.i64()
	in.BestAsk = r.i64()
	in.AssetTokens = r.i64()
	in.CurrencyTokens = r.i64()
	in.FeeRate = r.u32()
	in.SpreadBps = r.u32()
	r.skip(8)
	if r.err != nil {
		return Instrument{}, fmt.Errorf("%w: %v", domain.ErrMalformedAccount, r.err)
	}

	if tag != AccountTypeInstrument {
		return Instrument{}, fmt.Errorf("%w: account type %d is not an instrument", domain.ErrMalformedAccount, tag)
	}
	if in.Version != Version {
		return Instrument{}, fmt.Errorf("%w: instrument layout version %d", domain.ErrUnsupportedInstrument, in.Version)
	}
	if in.Curve != CurveFixedPrice && in.Curve != CurveConstantProduct {
		return Instrument{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedInstrument, in.Curve)
	}
	if err := in.validate(); err != nil {
		return Instrument{}, err
	}
	return in, nil
}

func (in Instrument) validate() error {
	switch {
	case in.LastPx < 0 || in.BestBid < 0 || in.BestAsk < 0:
		return fmt.Errorf("%w: negative price", domain.ErrMalformedAccount)
	case in.AssetTokens < 0 || in.CurrencyTokens < 0:
		return fmt.Errorf("%w: negative reserve", domain.ErrMalformedAccount)
	case in.FeeRate > FeeScale:
		return fmt.Errorf("%w: fee rate %d exceeds %d", domain.ErrMalformedAccount, in.FeeRate, FeeScale)
	case in.SpreadBps > BpsScale:
		return fmt.Errorf("%w: spread %d bps exceeds %d", domain.ErrMalformedAccount, in.SpreadBps, BpsScale)
	case in.AssetMint.Equals(in.CurrencyMint):
		return fmt.Errorf("%w: asset and currency mint are equal", domain.ErrMalformedAccount)
	}
	return nil
}

// MarketPx is the last traded price clamped into the current best bid/ask.
// An empty side does not clamp.
func (in Instrument) MarketPx() int64 {
	switch {
	case in.BestAsk != 0 && in.BestAsk < in.LastPx:
		return in.BestAsk
	case in.BestBid > in.LastPx:
		return in.BestBid
	default:
		return in.LastPx
	}
}

// Encode serialises the header into its on-chain layout.
func (in Instrument) Encode() ([]byte, error) {
	w := newWriter(InstrumentHeaderSize)
	w.u32(AccountTypeInstrument)
	w.u32(in.Version)
	w.u32(in.ID)
	w.u32(in.AssetTokenID)
	w.u32(in.CurrencyTokenID)
	w.u8(uint8(in.Curve))
	w.zero(3)
	w.key(in.AssetMint)
	w.key(in.CurrencyMint)
	w.key(in.MapsAddress)
	w.i64(in.LastPx)
	w.i64(in.BestBid)
	w.i64(in.BestAsk)
	w.i64(in.AssetTokens)
	w.i64(in.CurrencyTokens)
	w.u32(in.FeeRate)
	w.u32(in.SpreadBps)
	w.zero(8)
	return w.bytes()
}
