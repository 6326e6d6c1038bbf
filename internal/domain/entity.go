package domain

import (
	"time"
)

// AccountRecord is a captured copy of an on-chain account's data
type AccountRecord struct {
	Address   string    `gorm:"primaryKey" json:"address"`
	Data      []byte    `json:"data"`
	Slot      uint64    `json:"slot" gorm:"index"` // Slot the bytes were observed at
	UpdatedAt time.Time `json:"updated_at"`
}

// QuoteRecord is one quote produced for a tracked market
type QuoteRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Market         string    `gorm:"index" json:"market"`
	InputMint      string    `json:"input_mint"`
	OutputMint     string    `json:"output_mint"`
	Side           string    `json:"side"`
	InAmount       uint64    `json:"in_amount"`
	OutAmount      uint64    `json:"out_amount"`
	FeeAmount      uint64    `json:"fee_amount"`
	MinOutAmount   uint64    `json:"min_out_amount"`
	PriceImpactPct string    `json:"price_impact_pct"` // decimal string, no float
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}
