package engine

import (
	"fmt"

	"drv_adapter/internal/domain"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// WAD is the internal fixed-point scale: 1 whole token = 1e18 internal units.
const WAD uint64 = 1_000_000_000_000_000_000

var (
	wad      = uint256.NewInt(WAD)
	bpsScale = uint256.NewInt(10_000)
)

func u256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// mulDiv returns floor(x*y/d) with a 512-bit intermediate product.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", domain.ErrArithmeticOverflow)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, domain.ErrArithmeticOverflow
	}
	return z, nil
}

// mulDivUp returns ceil(x*y/d).
func mulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := mulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(x, y, d).IsZero() {
		if z.Eq(maxU256) {
			return nil, domain.ErrArithmeticOverflow
		}
		z.AddUint64(z, 1)
	}
	return z, nil
}

var maxU256 = new(uint256.Int).SetAllOne()

// toInternal converts raw token units to WAD-scaled whole units, rounding down.
func toInternal(raw, decimalFactor *uint256.Int) (*uint256.Int, error) {
	return mulDiv(raw, wad, decimalFactor)
}

// toRaw converts WAD-scaled whole units to raw token units, rounding down.
// The result is not narrowed; callers bound it before taking Uint64.
func toRaw(internal, decimalFactor *uint256.Int) (*uint256.Int, error) {
	return mulDiv(internal, decimalFactor, wad)
}

func toDecimal(v *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// ratio returns num/den as a decimal, or zero when den is zero.
func ratio(num, den *uint256.Int) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return toDecimal(num).Div(toDecimal(den))
}
