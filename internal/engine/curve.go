package engine

import (
	"fmt"
	"math"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/layout"

	"github.com/holiman/uint256"
)

// Curve turns a net input into an output, both in internal units.
// spot is the output the same input would receive at the marginal rate and
// is only used for price impact.
type Curve interface {
	Swap(m *Market, side domain.Side, in *uint256.Int) (out, spot *uint256.Int, err error)
}

// CurveFor returns the pricing function for kind.
func CurveFor(kind layout.CurveKind) (Curve, error) {
	switch kind {
	case layout.CurveFixedPrice:
		return FixedPrice{}, nil
	case layout.CurveConstantProduct:
		return ConstantProduct{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedInstrument, kind)
	}
}

// FixedPrice fills at the clamped market price widened by the instrument spread.
type FixedPrice struct{}

var priceScale = uint256.NewInt(uint64(layout.PriceScale))

func (FixedPrice) Swap(m *Market, side domain.Side, in *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	px := m.Instrument.MarketPx()
	if px <= 0 {
		return nil, nil, fmt.Errorf("%w: no market price", domain.ErrInsufficientLiquidity)
	}
	mid := u256(uint64(px))
	spread := u256(uint64(m.Instrument.SpreadBps))

	switch side {
	case domain.Ask:
		// taker sells asset into the bid, spread rounds against the taker
		cut, err := mulDivUp(mid, spread, bpsScale)
		if err != nil {
			return nil, nil, err
		}
		bidPx := new(uint256.Int)
		if cut.Lt(mid) {
			bidPx.Sub(mid, cut)
		}
		if err := checkBand(px, side, bidPx); err != nil {
			return nil, nil, err
		}
		out, err := mulDiv(in, bidPx, priceScale)
		if err != nil {
			return nil, nil, err
		}
		spot, err := mulDiv(in, mid, priceScale)
		if err != nil {
			return nil, nil, err
		}
		return out, spot, nil

	case domain.Bid:
		cut, err := mulDivUp(mid, spread, bpsScale)
		if err != nil {
			return nil, nil, err
		}
		askPx := new(uint256.Int).Add(mid, cut)
		if err := checkBand(px, side, askPx); err != nil {
			return nil, nil, err
		}
		out, err := mulDiv(in, priceScale, askPx)
		if err != nil {
			return nil, nil, err
		}
		spot, err := mulDiv(in, priceScale, mid)
		if err != nil {
			return nil, nil, err
		}
		return out, spot, nil
	}
	return nil, nil, fmt.Errorf("%w: side %d", domain.ErrMintMismatch, side)
}

// ConstantProduct fills along asset*currency = k over the instrument reserves.
type ConstantProduct struct{}

func (ConstantProduct) Swap(m *Market, side domain.Side, in *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	assetRes, err := toInternal(u256(uint64(m.Instrument.AssetTokens)), m.Asset.DecimalFactor())
	if err != nil {
		return nil, nil, err
	}
	crncyRes, err := toInternal(u256(uint64(m.Instrument.CurrencyTokens)), m.Currency.DecimalFactor())
	if err != nil {
		return nil, nil, err
	}

	resIn, resOut := crncyRes, assetRes
	if side == domain.Ask {
		resIn, resOut = assetRes, crncyRes
	}
	if resIn.IsZero() || resOut.IsZero() {
		return nil, nil, fmt.Errorf("%w: empty reserves", domain.ErrInsufficientLiquidity)
	}

	denom, carry := new(uint256.Int).AddOverflow(resIn, in)
	if carry {
		return nil, nil, domain.ErrArithmeticOverflow
	}
	out, err := mulDiv(resOut, in, denom)
	if err != nil {
		return nil, nil, err
	}
	spot, err := mulDiv(resOut, in, resIn)
	if err != nil {
		return nil, nil, err
	}

	// marginal price after the fill, currency per asset
	var postPx *uint256.Int
	if side == domain.Ask {
		postPx, err = mulDiv(new(uint256.Int).Sub(crncyRes, out), priceScale, denom)
	} else {
		postPx, err = mulDivUp(denom, priceScale, new(uint256.Int).Sub(assetRes, out))
	}
	if err != nil {
		return nil, nil, err
	}

	ref := m.Instrument.MarketPx()
	if ref <= 0 {
		poolPx, err := mulDiv(crncyRes, priceScale, assetRes)
		if err != nil {
			return nil, nil, err
		}
		if !poolPx.IsUint64() || poolPx.Uint64() > math.MaxInt64 {
			return nil, nil, domain.ErrArithmeticOverflow
		}
		ref = int64(poolPx.Uint64())
	}
	if err := checkBand(ref, side, postPx); err != nil {
		return nil, nil, err
	}
	return out, spot, nil
}

// checkBand rejects fills priced more than px/8 away from the market price,
// below it for sells and above it for buys. The venue does not fill past
// that band.
func checkBand(px int64, side domain.Side, fillPx *uint256.Int) error {
	maxDiff := uint64(px >> 3)
	if side == domain.Ask {
		floor := u256(uint64(px) - maxDiff)
		if fillPx.Lt(floor) {
			return fmt.Errorf("%w: fill price %s below band %s", domain.ErrInsufficientLiquidity, fillPx, floor)
		}
		return nil
	}
	ceiling := u256(uint64(px) + maxDiff)
	if fillPx.Gt(ceiling) {
		return fmt.Errorf("%w: fill price %s above band %s", domain.ErrInsufficientLiquidity, fillPx, ceiling)
	}
	return nil
}
