// Package market holds the refreshable state of one venue spot market.
package market

import (
	"fmt"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/engine"
	"drv_adapter/internal/layout"
	"drv_adapter/internal/pda"

	"github.com/gagliardetto/solana-go"
)

// Label identifies the venue in router output.
const Label = "Deriverse"

// Snapshot is the decoded state of one instrument and its two token records.
//
// A Snapshot has single-writer semantics: Refresh must not run concurrently
// with itself or with Quote. Concurrent Quote calls are safe.
type Snapshot struct {
	key        solana.PublicKey
	programID  solana.PublicKey
	assetAddr  solana.PublicKey
	crncyAddr  solana.PublicKey
	needed     []solana.PublicKey
	instrument layout.Instrument
	asset      *layout.Token
	currency   *layout.Token
}

var _ domain.Amm = (*Snapshot)(nil)

// New decodes the instrument account stored at address and returns an
// uninitialised snapshot plus the accounts the first Refresh needs.
func New(d *pda.Deriver, address solana.PublicKey, data []byte) (*Snapshot, []solana.PublicKey, error) {
	in, err := layout.DecodeInstrument(data)
	if err != nil {
		return nil, nil, domain.NewAccountError("decode_instrument", address.String(), err)
	}

	assetAddr, err := d.TokenStateAddress(in.AssetMint)
	if err != nil {
		return nil, nil, err
	}
	crncyAddr, err := d.TokenStateAddress(in.CurrencyMint)
	if err != nil {
		return nil, nil, err
	}

	s := &Snapshot{
		key:        address,
		programID:  d.ProgramID(),
		assetAddr:  assetAddr,
		crncyAddr:  crncyAddr,
		needed:     []solana.PublicKey{address, assetAddr, crncyAddr},
		instrument: in,
	}
	return s, s.AccountsNeeded(), nil
}

// AccountsNeeded returns the instrument and both token state addresses.
// The set is fixed for the lifetime of the snapshot.
func (s *Snapshot) AccountsNeeded() []solana.PublicKey {
	out := make([]solana.PublicKey, len(s.needed))
	copy(out, s.needed)
	return out
}

// Refresh replaces the records found in accounts. Every present account is
// decoded and validated before anything is stored, so a failed refresh leaves
// the previous state untouched. Addresses absent from accounts keep their
// previous value; on the first refresh both token records are required.
func (s *Snapshot) Refresh(accounts map[solana.PublicKey][]byte) error {
	in := s.instrument
	if data, ok := accounts[s.key]; ok {
		next, err := layout.DecodeInstrument(data)
		if err != nil {
			return domain.NewAccountError("refresh_instrument", s.key.String(), err)
		}
		if !next.AssetMint.Equals(s.instrument.AssetMint) || !next.CurrencyMint.Equals(s.instrument.CurrencyMint) {
			return domain.NewAccountError("refresh_instrument", s.key.String(),
				fmt.Errorf("%w: instrument mints changed", domain.ErrStateInconsistency))
		}
		in = next
	}

	asset, err := s.nextToken(accounts, s.assetAddr, s.asset, in.AssetMint)
	if err != nil {
		return err
	}
	crncy, err := s.nextToken(accounts, s.crncyAddr, s.currency, in.CurrencyMint)
	if err != nil {
		return err
	}

	s.instrument = in
	s.asset = asset
	s.currency = crncy
	return nil
}

func (s *Snapshot) nextToken(accounts map[solana.PublicKey][]byte, addr solana.PublicKey, prev *layout.Token, mint solana.PublicKey) (*layout.Token, error) {
	data, ok := accounts[addr]
	if !ok {
		if prev == nil {
			return nil, domain.NewAccountError("refresh_token", addr.String(), domain.ErrMissingAccount)
		}
		return prev, nil
	}

	tok, err := layout.DecodeToken(data)
	if err != nil {
		return nil, domain.NewAccountError("refresh_token", addr.String(), err)
	}
	if !tok.Mint.Equals(mint) {
		return nil, domain.NewAccountError("refresh_token", addr.String(),
			fmt.Errorf("%w: token mint %s, instrument expects %s", domain.ErrStateInconsistency, tok.Mint, mint))
	}
	return &tok, nil
}

// IsReady reports whether both token records have been loaded.
func (s *Snapshot) IsReady() bool {
	return s.asset != nil && s.currency != nil
}

// Quote prices an exact-input swap against the current records.
func (s *Snapshot) Quote(req domain.QuoteRequest) (domain.QuoteResult, error) {
	if !s.IsReady() {
		return domain.QuoteResult{}, domain.NewAccountError("quote", s.key.String(), domain.ErrMissingAccount)
	}
	return engine.Quote(s.view(), req)
}

func (s *Snapshot) view() *engine.Market {
	return &engine.Market{Instrument: s.instrument, Asset: *s.asset, Currency: *s.currency}
}

// IsActive reports whether the market can currently produce a quote.
func (s *Snapshot) IsActive() bool {
	if !s.IsReady() {
		return false
	}
	switch s.instrument.Curve {
	case layout.CurveConstantProduct:
		return s.instrument.AssetTokens > 0 && s.instrument.CurrencyTokens > 0
	default:
		return s.instrument.MarketPx() > 0
	}
}

// Clone returns an independent copy that can be refreshed separately.
func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.needed = s.AccountsNeeded()
	if s.asset != nil {
		a := *s.asset
		c.asset = &a
	}
	if s.currency != nil {
		b := *s.currency
		c.currency = &b
	}
	return &c
}

func (s *Snapshot) Key() solana.PublicKey       { return s.key }
func (s *Snapshot) Label() string               { return Label }
func (s *Snapshot) ProgramID() solana.PublicKey { return s.programID }

// ReserveMints returns the asset and currency mints in instrument order.
func (s *Snapshot) ReserveMints() []solana.PublicKey {
	return []solana.PublicKey{s.instrument.AssetMint, s.instrument.CurrencyMint}
}

func (s *Snapshot) Instrument() layout.Instrument { return s.instrument }

// AssetToken returns the asset token record and whether it has been loaded.
func (s *Snapshot) AssetToken() (layout.Token, bool) {
	if s.asset == nil {
		return layout.Token{}, false
	}
	return *s.asset, true
}

// CurrencyToken returns the currency token record and whether it has been loaded.
func (s *Snapshot) CurrencyToken() (layout.Token, bool) {
	if s.currency == nil {
		return layout.Token{}, false
	}
	return *s.currency, true
}

// TokenStateAddresses returns the asset and currency token state accounts.
func (s *Snapshot) TokenStateAddresses() (asset, currency solana.PublicKey) {
	return s.assetAddr, s.crncyAddr
}
