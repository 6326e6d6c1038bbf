package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/infra"
	"drv_adapter/internal/layout"
	"drv_adapter/internal/pda"

	"github.com/gagliardetto/solana-go"
)

var (
	solMint  = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	usdcMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

const testConfig = `
app:
  name: "drv-adapter-test"
venue:
  program_id: "%s"
storage:
  path: "%s"
fixtures:
  path: "%s"
markets:
  - name: "SOL-USDC"
    asset_mint: "%s"
    currency_mint: "%s"
probes:
  - market: "SOL-USDC"
    input_mint: "%s"
    amount: 1000000
    slippage_bps: 50
  - market: "SOL-USDC"
    input_mint: "%s"
    amount: 1000000000
logging:
  level: "error"
  dir: "%s"
`

// writeFixtures captures one SOL-USDC market at a 1:1 price.
func writeFixtures(t *testing.T, path string) solana.PublicKey {
	t.Helper()
	d, err := pda.NewDeriver(pda.MainnetProgramID, layout.Version)
	if err != nil {
		t.Fatalf("NewDeriver failed: %v", err)
	}
	addr, _ := d.InstrumentAddress(solMint, usdcMint)
	assetState, _ := d.TokenStateAddress(solMint)
	crncyState, _ := d.TokenStateAddress(usdcMint)

	in := layout.Instrument{
		Version:         layout.Version,
		ID:              1,
		AssetTokenID:    2,
		CurrencyTokenID: 3,
		Curve:           layout.CurveFixedPrice,
		AssetMint:       solMint,
		CurrencyMint:    usdcMint,
		LastPx:          layout.PriceScale,
		AssetTokens:     1_000_000_000,
		CurrencyTokens:  1_000_000_000_000,
	}
	inData, err := in.Encode()
	if err != nil {
		t.Fatalf("encode instrument: %v", err)
	}
	assetData, _ := layout.NewToken(solMint, solana.NewWallet().PublicKey(), 2, 6, 1_000_000_000_000).Encode()
	crncyData, _ := layout.NewToken(usdcMint, solana.NewWallet().PublicKey(), 3, 9, 1_000_000_000_000_000).Encode()

	records := []domain.AccountRecord{
		{Address: addr.String(), Data: inData, Slot: 1},
		{Address: assetState.String(), Data: assetData, Slot: 1},
		{Address: crncyState.String(), Data: crncyData, Slot: 1},
	}
	if err := infra.SaveAccountFixtures(path, records); err != nil {
		t.Fatalf("SaveAccountFixtures failed: %v", err)
	}
	return addr
}

func setupBootstrap(t *testing.T) (*Bootstrap, solana.PublicKey, string) {
	t.Helper()
	dir := t.TempDir()
	fixtures := filepath.Join(dir, "accounts.yaml")
	addr := writeFixtures(t, fixtures)

	cfgPath := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(testConfig,
		pda.MainnetProgramID, filepath.Join(dir, "db", "test.db"), fixtures,
		solMint, usdcMint, solMint, usdcMint, filepath.Join(dir, "logs"))
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	b := NewBootstrap()
	if err := b.Initialize(cfgPath); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(b.Close)
	return b, addr, dir
}

func TestBootstrap_EndToEnd(t *testing.T) {
	b, addr, _ := setupBootstrap(t)
	ctx := context.Background()

	if n := b.TrackMarkets(ctx); n != 1 {
		t.Fatalf("expected 1 tracked market, got %d", n)
	}

	b.RunOnce(ctx)

	snap := b.Metrics.Snapshot()
	if snap.ReadyMarkets != 1 {
		t.Errorf("expected 1 ready market, got %d", snap.ReadyMarkets)
	}
	if snap.Quotes != 2 || snap.QuoteFailures != 0 {
		t.Errorf("expected 2 successful probes, got %+v", snap)
	}

	recent, err := b.Storage.RecentQuotes(addr, 10)
	if err != nil {
		t.Fatalf("RecentQuotes failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recorded quotes, got %d", len(recent))
	}
	// newest first: currency in, asset out
	if recent[0].Side != "bid" || recent[0].OutAmount != 1_000_000 {
		t.Errorf("unexpected buy probe %+v", recent[0])
	}
	if recent[1].Side != "ask" || recent[1].OutAmount != 1_000_000_000 {
		t.Errorf("unexpected sell probe %+v", recent[1])
	}
}

func TestBootstrap_ExportFixtures(t *testing.T) {
	b, _, dir := setupBootstrap(t)

	out := filepath.Join(dir, "export.yaml")
	if err := b.ExportFixtures(out); err != nil {
		t.Fatalf("ExportFixtures failed: %v", err)
	}
	records, err := infra.LoadAccountFixtures(out)
	if err != nil {
		t.Fatalf("LoadAccountFixtures failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 exported accounts, got %d", len(records))
	}
}

func TestBootstrap_MissingConfig(t *testing.T) {
	b := NewBootstrap()
	err := b.Initialize(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config")
	}
}
