// Package engine computes exact-input swap quotes over a decoded market.
package engine

import (
	"fmt"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/layout"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

var feeScale = uint256.NewInt(uint64(layout.FeeScale))

// Market is the read-only view the engine quotes against.
type Market struct {
	Instrument layout.Instrument
	Asset      layout.Token
	Currency   layout.Token
}

// Direction resolves which side of the book a swap from inputMint to
// outputMint trades against.
func (m *Market) Direction(inputMint, outputMint solana.PublicKey) (domain.Side, error) {
	switch {
	case inputMint.Equals(m.Instrument.AssetMint) && outputMint.Equals(m.Instrument.CurrencyMint):
		return domain.Ask, nil
	case inputMint.Equals(m.Instrument.CurrencyMint) && outputMint.Equals(m.Instrument.AssetMint):
		return domain.Bid, nil
	default:
		return 0, fmt.Errorf("%w: %s -> %s is not %s/%s", domain.ErrMintMismatch,
			inputMint, outputMint, m.Instrument.AssetMint, m.Instrument.CurrencyMint)
	}
}

// legs returns the input and output token records for side.
func (m *Market) legs(side domain.Side) (in, out layout.Token, outReserve int64) {
	if side == domain.Ask {
		return m.Asset, m.Currency, m.Instrument.CurrencyTokens
	}
	return m.Currency, m.Asset, m.Instrument.AssetTokens
}

// Quote prices req against m. It never mutates m and the result depends only
// on m and req.
func Quote(m *Market, req domain.QuoteRequest) (domain.QuoteResult, error) {
	if req.SwapMode == domain.ExactOut {
		return domain.QuoteResult{}, domain.ErrExactOutUnsupported
	}
	side, err := m.Direction(req.InputMint, req.OutputMint)
	if err != nil {
		return domain.QuoteResult{}, err
	}
	if req.Amount == 0 {
		return domain.QuoteResult{}, domain.ErrZeroAmount
	}

	curve, err := CurveFor(m.Instrument.Curve)
	if err != nil {
		return domain.QuoteResult{}, err
	}

	inTok, outTok, outReserve := m.legs(side)

	gross := u256(req.Amount)
	fee, err := mulDivUp(gross, u256(uint64(m.Instrument.FeeRate)), feeScale)
	if err != nil {
		return domain.QuoteResult{}, err
	}
	net := new(uint256.Int).Sub(gross, fee)

	inInternal, err := toInternal(net, inTok.DecimalFactor())
	if err != nil {
		return domain.QuoteResult{}, err
	}
	outInternal, spotInternal, err := curve.Swap(m, side, inInternal)
	if err != nil {
		return domain.QuoteResult{}, err
	}

	outRaw, err := toRaw(outInternal, outTok.DecimalFactor())
	if err != nil {
		return domain.QuoteResult{}, err
	}
	if outRaw.IsZero() {
		return domain.QuoteResult{}, domain.ErrOutputTooSmall
	}
	available := min(uint64(outReserve), outTok.Balance)
	if outRaw.Gt(u256(available)) {
		return domain.QuoteResult{}, fmt.Errorf("%w: need %s, have %d", domain.ErrInsufficientLiquidity, outRaw, available)
	}
	outAmount := outRaw.Uint64()

	return domain.QuoteResult{
		InAmount:       req.Amount,
		OutAmount:      outAmount,
		FeeAmount:      fee.Uint64(),
		FeeMint:        inTok.Mint,
		FeePct:         ratio(fee, gross),
		PriceImpactPct: priceImpact(outInternal, spotInternal),
		MinOutAmount:   MinOut(outAmount, req.SlippageBps),
		Side:           side,
	}, nil
}

// priceImpact is 1 - out/spot, floored at zero.
func priceImpact(out, spot *uint256.Int) decimal.Decimal {
	if spot.IsZero() {
		return decimal.Zero
	}
	impact := decimal.NewFromInt(1).Sub(ratio(out, spot))
	if impact.IsNegative() {
		return decimal.Zero
	}
	return impact
}

// MinOut applies slippageBps to out, rounding down.
func MinOut(out uint64, slippageBps uint16) uint64 {
	if uint32(slippageBps) >= layout.BpsScale {
		return 0
	}
	keep := uint64(layout.BpsScale) - uint64(slippageBps)
	// a u64 times a value below 1e4 always fits in 256 bits
	z := new(uint256.Int).Mul(u256(out), u256(keep))
	return z.Div(z, bpsScale).Uint64()
}
