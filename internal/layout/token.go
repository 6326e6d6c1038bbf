package layout

import (
	"fmt"

	"drv_adapter/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
)

// Token is the venue's per-mint token state account.
type Token struct {
	Version        uint32
	Mint           solana.PublicKey
	ProgramAddress solana.PublicKey // vault holding the venue's balance of Mint
	ID             uint32
	Balance        uint64

	// packed attribute word; the low byte is the decimal exponent
	attributes uint32
}

// NewToken builds a token record with the given decimal exponent.
func NewToken(mint, programAddress solana.PublicKey, id uint32, decimals uint8, balance uint64) Token {
	return Token{
		Version:        Version,
		Mint:           mint,
		ProgramAddress: programAddress,
		ID:             id,
		Balance:        balance,
		attributes:     uint32(decimals),
	}
}

// DecimalExponent returns the number of decimal places of the mint.
func (t Token) DecimalExponent() uint8 {
	return uint8(t.attributes & 0xFF)
}

// DecimalFactor returns 10^DecimalExponent.
func (t Token) DecimalFactor() *uint256.Int {
	return Pow10(t.DecimalExponent())
}

// Pow10 returns 10^exp as a 256-bit integer.
func Pow10(exp uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
}

// DecodeToken parses a token state account. The buffer must be exactly
// TokenSize bytes.
func DecodeToken(data []byte) (Token, error) {
	if len(data) != TokenSize {
		return Token{}, fmt.Errorf("%w: token account is %d bytes, want %d", domain.ErrMalformedAccount, len(data), TokenSize)
	}

	r := newReader(data)
	tag := r.u32()
	t := Token{
		Version:        r.u32(),
		Mint:           r.key(),
		ProgramAddress: r.key(),
		ID:             r.u32(),
		attributes:     r.u32(),
		Balance:        r.u64(),
	}
	r.skip(8)
	if r.err != nil {
		return Token{}, fmt.Errorf("%w: %v", domain.ErrMalformedAccount, r.err)
	}

	if tag != AccountTypeToken {
		return Token{}, fmt.Errorf("%w: account type %d is not a token", domain.ErrMalformedAccount, tag)
	}
	if t.Version != Version {
		return Token{}, fmt.Errorf("%w: token layout version %d", domain.ErrUnsupportedInstrument, t.Version)
	}
	if t.DecimalExponent() > MaxDecimals {
		return Token{}, fmt.Errorf("%w: decimal exponent %d exceeds %d", domain.ErrMalformedAccount, t.DecimalExponent(), MaxDecimals)
	}
	return t, nil
}

// Encode serialises the record into its on-chain layout.
func (t Token) Encode() ([]byte, error) {
	w := newWriter(TokenSize)
	w.u32(AccountTypeToken)
	w.u32(t.Version)
	w.key(t.Mint)
	w.key(t.ProgramAddress)
	w.u32(t.ID)
	w.u32(t.attributes)
	w.u64(t.Balance)
	w.zero(8)
	return w.bytes()
}
