// Package instruction encodes swap payloads for the venue program.
package instruction

import (
	"bytes"
	"fmt"
	"math"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/layout"
	"drv_adapter/internal/pda"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	// VenueDiscriminant tags the venue inside a router's shared swap enum.
	VenueDiscriminant uint8 = 0x2A

	// SwapTag is the program instruction tag of a spot swap.
	SwapTag uint8 = 26

	// NullInstrumentID is reserved by the program and cannot be traded.
	NullInstrumentID uint32 = math.MaxUint32

	// SwapVariantSize is the length of Build output.
	SwapVariantSize = 6
	// SwapDataSize is the length of SwapData.Encode output.
	SwapDataSize = 24
)

// Build encodes the router swap variant: discriminant, side, instrument id.
func Build(side domain.Side, instrumentID uint32) ([]byte, error) {
	if instrumentID == NullInstrumentID {
		return nil, fmt.Errorf("%w: %d", domain.ErrInstrumentIDOutOfRange, instrumentID)
	}
	if side != domain.Bid && side != domain.Ask {
		return nil, fmt.Errorf("unknown side %d", side)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	if err := enc.WriteUint8(VenueDiscriminant); err != nil {
		return nil, err
	}
	if err := enc.WriteUint8(uint8(side)); err != nil {
		return nil, err
	}
	if err := enc.WriteUint32(instrumentID, bin.LE); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SwapData is the program-side instruction payload of a market swap.
type SwapData struct {
	Side         domain.Side
	InstrumentID uint32
	Amount       uint64
}

// Encode serialises the payload. A zero price means a market order.
func (d SwapData) Encode() ([]byte, error) {
	if d.InstrumentID == NullInstrumentID {
		return nil, fmt.Errorf("%w: %d", domain.ErrInstrumentIDOutOfRange, d.InstrumentID)
	}
	if d.Amount > math.MaxInt64 {
		return nil, fmt.Errorf("%w: amount %d exceeds int64", domain.ErrArithmeticOverflow, d.Amount)
	}
	var inputCurrency uint8
	if d.Side == domain.Bid {
		inputCurrency = 1
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBinEncoder(buf)
	for _, step := range []func() error{
		func() error { return enc.WriteUint8(SwapTag) },
		func() error { return enc.WriteUint8(inputCurrency) },
		func() error { return enc.WriteBytes([]byte{0, 0}, false) },
		func() error { return enc.WriteUint32(d.InstrumentID, bin.LE) },
		func() error { return enc.WriteInt64(0, bin.LE) },
		func() error { return enc.WriteInt64(int64(d.Amount), bin.LE) },
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// SwapParams names the taker-side accounts of a swap.
type SwapParams struct {
	SourceMint              solana.PublicKey
	DestinationMint         solana.PublicKey
	SourceTokenAccount      solana.PublicKey
	DestinationTokenAccount solana.PublicKey
	Authority               solana.PublicKey // signer owning the source account
	InAmount                uint64
	// Token programs owning the asset and currency mints.
	// Zero values default to the SPL token program.
	AssetTokenProgram    solana.PublicKey
	CurrencyTokenProgram solana.PublicKey
}

// MarketAccounts is what the builder needs from a refreshed market.
type MarketAccounts struct {
	Instrument         solana.PublicKey
	Header             layout.Instrument
	AssetTokenState    solana.PublicKey
	CurrencyTokenState solana.PublicKey
	AssetVault         solana.PublicKey
	CurrencyVault      solana.PublicKey
}

// ResolveSide maps a source/destination mint pair onto the book side.
func ResolveSide(header layout.Instrument, source, destination solana.PublicKey) (domain.Side, error) {
	switch {
	case source.Equals(header.CurrencyMint) && destination.Equals(header.AssetMint):
		return domain.Bid, nil
	case source.Equals(header.AssetMint) && destination.Equals(header.CurrencyMint):
		return domain.Ask, nil
	default:
		return 0, fmt.Errorf("%w: %s -> %s", domain.ErrMintMismatch, source, destination)
	}
}

// SwapAccounts returns the account list of a swap in program order.
func SwapAccounts(d *pda.Deriver, m MarketAccounts, p SwapParams) (domain.Side, solana.AccountMetaSlice, error) {
	side, err := ResolveSide(m.Header, p.SourceMint, p.DestinationMint)
	if err != nil {
		return 0, nil, err
	}
	assetAccount, crncyAccount := p.SourceTokenAccount, p.DestinationTokenAccount
	if side == domain.Bid {
		assetAccount, crncyAccount = p.DestinationTokenAccount, p.SourceTokenAccount
	}

	root, err := d.Account(layout.AccountTypeRoot)
	if err != nil {
		return 0, nil, err
	}
	community, err := d.Account(layout.AccountTypeCommunity)
	if err != nil {
		return 0, nil, err
	}

	spotTags := []uint32{
		layout.AccountTypeSpotBidsTree,
		layout.AccountTypeSpotAsksTree,
		layout.AccountTypeSpotBidOrders,
		layout.AccountTypeSpotAskOrders,
		layout.AccountTypeSpotLines,
	}
	clientTags := []uint32{
		layout.AccountTypeSpotClientInfos,
		layout.AccountTypeSpotClientInfos2,
		layout.AccountTypeSpot1MCandles,
		layout.AccountTypeSpot15MCandles,
		layout.AccountTypeSpotDayCandles,
	}
	spot := func(tags []uint32) ([]*solana.AccountMeta, error) {
		metas := make([]*solana.AccountMeta, 0, len(tags))
		for _, tag := range tags {
			addr, err := d.SpotAccount(tag, m.Header.AssetTokenID, m.Header.CurrencyTokenID)
			if err != nil {
				return nil, err
			}
			metas = append(metas, solana.NewAccountMeta(addr, true, false))
		}
		return metas, nil
	}
	book, err := spot(spotTags)
	if err != nil {
		return 0, nil, err
	}
	clients, err := spot(clientTags)
	if err != nil {
		return 0, nil, err
	}

	assetProgram := orDefault(p.AssetTokenProgram, solana.TokenProgramID)
	crncyProgram := orDefault(p.CurrencyTokenProgram, solana.TokenProgramID)

	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Authority, false, true),
		solana.NewAccountMeta(root, false, false),
		solana.NewAccountMeta(m.Instrument, true, false),
	}
	metas = append(metas, book...)
	metas = append(metas, solana.NewAccountMeta(m.Header.MapsAddress, true, false))
	metas = append(metas, clients...)
	metas = append(metas,
		solana.NewAccountMeta(community, false, false),
		solana.NewAccountMeta(m.AssetVault, true, false),
		solana.NewAccountMeta(m.CurrencyVault, true, false),
		solana.NewAccountMeta(m.Header.AssetMint, false, false),
		solana.NewAccountMeta(m.Header.CurrencyMint, false, false),
		solana.NewAccountMeta(m.AssetTokenState, false, false),
		solana.NewAccountMeta(m.CurrencyTokenState, false, false),
		solana.NewAccountMeta(assetAccount, true, false),
		solana.NewAccountMeta(crncyAccount, true, false),
		solana.NewAccountMeta(d.Authority(), false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(assetProgram, false, false),
		solana.NewAccountMeta(crncyProgram, false, false),
		solana.NewAccountMeta(solana.SPLAssociatedTokenAccountProgramID, false, false),
	)
	return side, metas, nil
}

// NewSwapInstruction assembles the complete program instruction for a swap.
func NewSwapInstruction(d *pda.Deriver, m MarketAccounts, p SwapParams) (*solana.GenericInstruction, error) {
	side, metas, err := SwapAccounts(d, m, p)
	if err != nil {
		return nil, err
	}
	data, err := SwapData{Side: side, InstrumentID: m.Header.ID, Amount: p.InAmount}.Encode()
	if err != nil {
		return nil, err
	}
	return solana.NewInstruction(d.ProgramID(), metas, data), nil
}

func orDefault(key, fallback solana.PublicKey) solana.PublicKey {
	if key.IsZero() {
		return fallback
	}
	return key
}
