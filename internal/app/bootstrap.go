package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/infra"
	"drv_adapter/internal/infra/storage"
	"drv_adapter/internal/pda"
	"drv_adapter/internal/service"

	"github.com/gagliardetto/solana-go"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Logger  *slog.Logger
	Storage *storage.Storage
	Deriver *pda.Deriver
	Metrics *infra.Metrics
	Markets *service.MarketService
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, services)
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	b.Logger.Info("🚀 Bootstrapping venue adapter...", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	b.Logger.Info("✅ Database initialized", slog.String("path", cfg.Storage.Path))

	// 4. Import captured accounts
	if cfg.Fixtures.Path != "" {
		records, err := infra.LoadAccountFixtures(cfg.Fixtures.Path)
		if err != nil {
			return err
		}
		n, err := store.ImportAccounts(records)
		if err != nil {
			return err
		}
		b.Logger.Info("✅ Fixtures imported", slog.Int("accounts", n))
	}

	// 5. Derivation and market services
	deriver, err := pda.NewDeriver(cfg.ProgramKey(), cfg.Venue.Version)
	if err != nil {
		return err
	}
	b.Deriver = deriver
	b.Metrics = infra.NewMetrics()
	b.Markets = service.NewMarketService(deriver, store, service.Options{
		FetchConcurrency: cfg.Sync.FetchConcurrency,
		Metrics:          b.Metrics,
		Logger:           b.Logger,
		Recorder:         store,
	})
	b.Logger.Info("✅ Market service ready",
		slog.String("program", deriver.ProgramID().String()),
		slog.Uint64("layout_version", uint64(deriver.Version())),
	)

	return nil
}

// TrackMarkets registers every configured pair. A pair whose instrument
// cannot be loaded is logged and skipped.
func (b *Bootstrap) TrackMarkets(ctx context.Context) int {
	tracked := 0
	for _, m := range b.Config.Markets {
		asset := solana.MustPublicKeyFromBase58(m.AssetMint)
		crncy := solana.MustPublicKeyFromBase58(m.CurrencyMint)

		if _, err := b.Markets.TrackPair(ctx, m.Name, asset, crncy); err != nil {
			b.Logger.Error("Failed to track market", slog.String("market", m.Name), slog.Any("error", err))
			continue
		}
		tracked++
	}
	return tracked
}

// RunProbes issues every configured probe quote and logs the outcome.
func (b *Bootstrap) RunProbes() {
	infos := make(map[string]service.MarketInfo)
	for _, info := range b.Markets.Markets() {
		infos[info.Name] = info
	}

	for _, p := range b.Config.Probes {
		info, ok := infos[p.Market]
		if !ok {
			continue
		}
		input := solana.MustPublicKeyFromBase58(p.InputMint)
		output := info.CurrencyMint
		if input.Equals(info.CurrencyMint) {
			output = info.AssetMint
		}

		req := domain.QuoteRequest{
			InputMint:   input,
			OutputMint:  output,
			Amount:      p.Amount,
			SwapMode:    domain.ExactIn,
			SlippageBps: p.SlippageBps,
		}
		res, err := b.Markets.Quote(p.Market, req)
		if err != nil {
			level := slog.LevelWarn
			if domain.IsFatal(err) {
				level = slog.LevelError
			}
			b.Logger.Log(context.Background(), level, "Probe quote failed",
				slog.String("market", p.Market),
				slog.Uint64("amount", p.Amount),
				slog.Bool("retriable", domain.IsRetriable(err)),
				slog.Any("error", err),
			)
			continue
		}
		b.Logger.Info("Probe quote",
			slog.String("market", p.Market),
			slog.String("side", res.Side.String()),
			slog.Uint64("in", res.InAmount),
			slog.Uint64("out", res.OutAmount),
			slog.Uint64("fee", res.FeeAmount),
			slog.Uint64("min_out", res.MinOutAmount),
			slog.String("price_impact", res.PriceImpactPct.String()),
		)
	}
}

// Run syncs and probes on every poll tick until ctx is cancelled.
func (b *Bootstrap) Run(ctx context.Context) error {
	interval := time.Duration(b.Config.Sync.PollIntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		b.tick(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single sync and probe pass.
func (b *Bootstrap) RunOnce(ctx context.Context) {
	b.tick(ctx)
}

func (b *Bootstrap) tick(ctx context.Context) {
	if err := b.Markets.Sync(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		b.Logger.Warn("Sync completed with errors", slog.Any("error", err))
	}
	b.RunProbes()

	snap := b.Metrics.Snapshot()
	b.Logger.Debug("Metrics",
		slog.Uint64("refreshes", snap.Refreshes),
		slog.Uint64("refresh_failures", snap.RefreshFailures),
		slog.Uint64("quotes", snap.Quotes),
		slog.Int64("avg_quote_ns", snap.AvgQuoteLatencyNs),
		slog.Int("ready_markets", int(snap.ReadyMarkets)),
	)
}

// ExportFixtures writes every stored account to a YAML dump at path.
func (b *Bootstrap) ExportFixtures(path string) error {
	records, err := b.Storage.GetAllAccounts()
	if err != nil {
		return err
	}
	if err := infra.SaveAccountFixtures(path, records); err != nil {
		return fmt.Errorf("export fixtures: %w", err)
	}
	b.Logger.Info("✨ Fixtures exported", slog.String("path", path), slog.Int("accounts", len(records)))
	return nil
}

// Close releases storage resources.
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			b.Logger.Warn("Failed to close storage", slog.Any("error", err))
		}
	}
}
