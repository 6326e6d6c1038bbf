package domain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// AccountFetcher returns the raw bytes of one on-chain account.
// Implementations return ErrAccountNotFound when the address has no data.
type AccountFetcher interface {
	GetAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
}

// Amm is the contract a router drives for every venue market it tracks.
type Amm interface {
	Key() solana.PublicKey
	Label() string
	ProgramID() solana.PublicKey
	ReserveMints() []solana.PublicKey
	AccountsNeeded() []solana.PublicKey
	Refresh(accounts map[solana.PublicKey][]byte) error
	Quote(req QuoteRequest) (QuoteResult, error)
	IsActive() bool
}

// QuoteRecorder persists quote outcomes for later inspection.
type QuoteRecorder interface {
	RecordQuote(market solana.PublicKey, req QuoteRequest, res QuoteResult) error
}
