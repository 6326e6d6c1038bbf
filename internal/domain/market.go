package domain

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Side is the order-book side a swap is executed against from the taker's view.
type Side uint8

const (
	// Bid spends currency and receives asset.
	Bid Side = 0
	// Ask spends asset and receives currency.
	Ask Side = 1
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return "unknown"
	}
}

// SwapMode selects which side of the trade the request amount fixes.
type SwapMode uint8

const (
	ExactIn SwapMode = iota
	ExactOut
)

func (m SwapMode) String() string {
	if m == ExactOut {
		return "exact_out"
	}
	return "exact_in"
}

// QuoteRequest is an exact-input swap query in raw token units.
type QuoteRequest struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	Amount      uint64
	SwapMode    SwapMode
	SlippageBps uint16
}

// QuoteResult is the outcome of a quote. FeeAmount is denominated in FeeMint
// raw units; percentages are fractions (0.003 = 0.3%).
type QuoteResult struct {
	InAmount       uint64
	OutAmount      uint64
	FeeAmount      uint64
	FeeMint        solana.PublicKey
	FeePct         decimal.Decimal
	PriceImpactPct decimal.Decimal
	MinOutAmount   uint64
	Side           Side
}
