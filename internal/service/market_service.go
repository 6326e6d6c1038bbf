package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/infra"
	"drv_adapter/internal/instruction"
	"drv_adapter/internal/market"
	"drv_adapter/internal/pda"

	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownMarket is returned for a market name that is not tracked.
var ErrUnknownMarket = errors.New("unknown market")

// MarketInfo is a read-only summary of a tracked market.
type MarketInfo struct {
	Name         string
	Address      solana.PublicKey
	AssetMint    solana.PublicKey
	CurrencyMint solana.PublicKey
	Ready        bool
	Active       bool
}

// Options configures a MarketService. Zero values fall back to defaults.
type Options struct {
	FetchConcurrency int
	Metrics          *infra.Metrics
	Logger           *slog.Logger
	Recorder         domain.QuoteRecorder
}

// MarketService owns every tracked snapshot and serialises refreshes against
// quotes: Sync takes the write lock, Quote takes the read lock.
type MarketService struct {
	mu      sync.RWMutex
	markets map[string]*market.Snapshot

	deriver     *pda.Deriver
	fetcher     domain.AccountFetcher
	concurrency int
	metrics     *infra.Metrics
	logger      *slog.Logger
	recorder    domain.QuoteRecorder
}

// NewMarketService creates a new MarketService instance
func NewMarketService(deriver *pda.Deriver, fetcher domain.AccountFetcher, opts Options) *MarketService {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.NewMetrics()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &MarketService{
		markets:     make(map[string]*market.Snapshot),
		deriver:     deriver,
		fetcher:     fetcher,
		concurrency: opts.FetchConcurrency,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		recorder:    opts.Recorder,
	}
}

// TrackPair derives the market address of an ordered mint pair and tracks it.
func (s *MarketService) TrackPair(ctx context.Context, name string, assetMint, currencyMint solana.PublicKey) (solana.PublicKey, error) {
	addr, err := s.deriver.InstrumentAddress(assetMint, currencyMint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return addr, s.Track(ctx, name, addr)
}

// Track fetches the instrument at address and registers an uninitialised
// snapshot under name. The snapshot becomes quotable after the next Sync.
func (s *MarketService) Track(ctx context.Context, name string, address solana.PublicKey) error {
	data, err := s.fetcher.GetAccount(ctx, address)
	if err != nil {
		return fmt.Errorf("track %s: %w", name, err)
	}
	snap, _, err := market.New(s.deriver, address, data)
	if err != nil {
		return fmt.Errorf("track %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.markets[name]; exists {
		return fmt.Errorf("track %s: already tracked", name)
	}
	s.markets[name] = snap

	s.logger.Info("Market tracked",
		slog.String("market", name),
		slog.String("address", address.String()),
		slog.String("asset", snap.Instrument().AssetMint.String()),
		slog.String("currency", snap.Instrument().CurrencyMint.String()),
	)
	return nil
}

// Untrack stops tracking name.
func (s *MarketService) Untrack(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.markets, name)
}

// Sync fetches every account the tracked markets need and refreshes them.
// Accounts the fetcher does not have are left out of the refresh, so each
// snapshot keeps its previous record for them. Per-market refresh failures
// are joined; a failed market keeps its previous state.
func (s *MarketService) Sync(ctx context.Context) error {
	s.mu.RLock()
	needed := make(map[string][]solana.PublicKey, len(s.markets))
	unique := make(map[solana.PublicKey]struct{})
	for name, snap := range s.markets {
		keys := snap.AccountsNeeded()
		needed[name] = keys
		for _, k := range keys {
			unique[k] = struct{}{}
		}
	}
	s.mu.RUnlock()

	fetched, err := s.fetchAll(ctx, unique)
	if err != nil {
		return err
	}
	s.metrics.RecordFetched(len(fetched))

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	var ready int32
	for name, keys := range needed {
		snap, ok := s.markets[name]
		if !ok {
			continue // untracked while fetching
		}
		batch := make(map[solana.PublicKey][]byte, len(keys))
		for _, k := range keys {
			if data, ok := fetched[k]; ok {
				batch[k] = data
			}
		}

		err := snap.Refresh(batch)
		s.metrics.RecordRefresh(err)
		if err != nil {
			s.logger.Warn("Market refresh failed",
				slog.String("market", name),
				slog.Bool("fatal", domain.IsFatal(err)),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		if snap.IsReady() {
			ready++
		}
	}
	s.metrics.SetReadyMarkets(ready)
	return errors.Join(errs...)
}

func (s *MarketService) fetchAll(ctx context.Context, keys map[solana.PublicKey]struct{}) (map[solana.PublicKey][]byte, error) {
	var mu sync.Mutex
	out := make(map[solana.PublicKey][]byte, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for key := range keys {
		key := key
		g.Go(func() error {
			data, err := s.fetcher.GetAccount(gctx, key)
			if errors.Is(err, domain.ErrAccountNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch %s: %w", key, err)
			}
			mu.Lock()
			out[key] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Quote prices req against the named market.
func (s *MarketService) Quote(name string, req domain.QuoteRequest) (domain.QuoteResult, error) {
	start := time.Now()

	s.mu.RLock()
	snap, ok := s.markets[name]
	if !ok {
		s.mu.RUnlock()
		return domain.QuoteResult{}, fmt.Errorf("%w: %s", ErrUnknownMarket, name)
	}
	res, err := snap.Quote(req)
	key := snap.Key()
	s.mu.RUnlock()

	s.metrics.RecordQuote(time.Since(start).Nanoseconds(), err)
	if err != nil {
		return domain.QuoteResult{}, err
	}

	if s.recorder != nil {
		if rerr := s.recorder.RecordQuote(key, req, res); rerr != nil {
			s.logger.Warn("Failed to record quote", slog.String("market", name), slog.Any("error", rerr))
		}
	}
	return res, nil
}

// SwapInstruction builds the program instruction for a swap on the named market.
func (s *MarketService) SwapInstruction(name string, params instruction.SwapParams) (*solana.GenericInstruction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.markets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMarket, name)
	}
	asset, okA := snap.AssetToken()
	crncy, okC := snap.CurrencyToken()
	if !okA || !okC {
		return nil, fmt.Errorf("swap %s: %w", name, domain.ErrMissingAccount)
	}
	assetState, crncyState := snap.TokenStateAddresses()

	return instruction.NewSwapInstruction(s.deriver, instruction.MarketAccounts{
		Instrument:         snap.Key(),
		Header:             snap.Instrument(),
		AssetTokenState:    assetState,
		CurrencyTokenState: crncyState,
		AssetVault:         asset.ProgramAddress,
		CurrencyVault:      crncy.ProgramAddress,
	}, params)
}

// Markets returns all tracked markets sorted by name
func (s *MarketService) Markets() []MarketInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]MarketInfo, 0, len(s.markets))
	for name, snap := range s.markets {
		mints := snap.ReserveMints()
		result = append(result, MarketInfo{
			Name:         name,
			Address:      snap.Key(),
			AssetMint:    mints[0],
			CurrencyMint: mints[1],
			Ready:        snap.IsReady(),
			Active:       snap.IsActive(),
		})
	}

	// Sort by name for consistent ordering
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Snapshot returns an independent copy of the named market's state.
func (s *MarketService) Snapshot(name string) (*market.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.markets[name]
	if !ok {
		return nil, false
	}
	return snap.Clone(), true
}
