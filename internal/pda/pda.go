// Package pda derives the venue program's account addresses.
package pda

import (
	"encoding/binary"
	"fmt"

	"drv_adapter/internal/layout"

	"github.com/gagliardetto/solana-go"
)

var (
	// MainnetProgramID is the deployed venue program.
	MainnetProgramID = solana.MustPublicKeyFromBase58("DRVSpZ2YUYYKgZP8XtLhAGtT1zYSCKzeHfb4DgRnrgqD")
	// DevnetProgramID is the program used by integration fixtures.
	DevnetProgramID = solana.MustPublicKeyFromBase58("hSuxfshizdWKiWCVBPhrLBq1yuwLPrGnfmii3JUn613")
)

// AuthoritySeed is the seed of the program authority account.
const AuthoritySeed = "drvs"

// Deriver computes program-derived addresses for one program deployment.
// It is immutable and safe for concurrent use.
type Deriver struct {
	programID solana.PublicKey
	version   uint32
	authority solana.PublicKey
}

// NewDeriver returns a Deriver for programID at layout version.
func NewDeriver(programID solana.PublicKey, version uint32) (*Deriver, error) {
	auth, _, err := solana.FindProgramAddress([][]byte{[]byte(AuthoritySeed)}, programID)
	if err != nil {
		return nil, fmt.Errorf("derive authority: %w", err)
	}
	return &Deriver{programID: programID, version: version, authority: auth}, nil
}

// ProgramID returns the program the addresses belong to.
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// Version returns the layout version mixed into every seed.
func (d *Deriver) Version() uint32 {
	return d.version
}

// Authority returns the program authority address.
func (d *Deriver) Authority() solana.PublicKey {
	return d.authority
}

// MarketAddress derives the market account for an ordered mint pair.
// Swapping the mints yields a different address.
func (d *Deriver) MarketAddress(tag uint32, mintA, mintB solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{d.tagSeed(tag), mintA[:], mintB[:]}, d.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive market address: %w", err)
	}
	return addr, nil
}

// InstrumentAddress is MarketAddress with the instrument account tag.
func (d *Deriver) InstrumentAddress(assetMint, currencyMint solana.PublicKey) (solana.PublicKey, error) {
	return d.MarketAddress(layout.AccountTypeInstrument, assetMint, currencyMint)
}

// TokenStateAddress derives the venue's token state account for mint.
func (d *Deriver) TokenStateAddress(mint solana.PublicKey) (solana.PublicKey, error) {
	seed := make([]byte, 32)
	copy(seed[0:28], mint[0:28])
	binary.LittleEndian.PutUint32(seed[28:32], d.version)
	return d.withAuthority("token state", seed)
}

// SpotAccount derives a per-instrument auxiliary account such as an order tree.
func (d *Deriver) SpotAccount(tag, assetTokenID, currencyTokenID uint32) (solana.PublicKey, error) {
	seed := make([]byte, 16)
	binary.LittleEndian.PutUint32(seed[0:4], d.version)
	binary.LittleEndian.PutUint32(seed[4:8], tag)
	binary.LittleEndian.PutUint32(seed[8:12], assetTokenID)
	binary.LittleEndian.PutUint32(seed[12:16], currencyTokenID)
	return d.withAuthority("spot account", seed)
}

// Account derives a program-wide singleton account such as the root.
func (d *Deriver) Account(tag uint32) (solana.PublicKey, error) {
	return d.withAuthority("account", d.tagSeed(tag))
}

func (d *Deriver) tagSeed(tag uint32) []byte {
	seed := make([]byte, 8)
	binary.LittleEndian.PutUint32(seed[0:4], d.version)
	binary.LittleEndian.PutUint32(seed[4:8], tag)
	return seed
}

func (d *Deriver) withAuthority(kind string, seed []byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seed, d.authority[:]}, d.programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("derive %s: %w", kind, err)
	}
	return addr, nil
}
