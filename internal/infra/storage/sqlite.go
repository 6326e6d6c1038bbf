package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"drv_adapter/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists captured account data and quote history in SQLite
type Storage struct {
	db *gorm.DB
}

var (
	_ domain.AccountFetcher = (*Storage)(nil)
	_ domain.QuoteRecorder  = (*Storage)(nil)
)

// NewStorage opens (or creates) the SQLite database at dbPath
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.AccountRecord{}, &domain.QuoteRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Account Operations
// ======================================================================================

// UpsertAccount stores account bytes unless a newer slot is already recorded
func (s *Storage) UpsertAccount(rec *domain.AccountRecord) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.AccountRecord
		err := tx.First(&existing, "address = ?", rec.Address).Error
		if err == nil && existing.Slot > rec.Slot {
			return nil
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		rec.UpdatedAt = time.Now()
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(rec).Error
	})
}

// ImportAccounts upserts every record, returning how many were written
func (s *Storage) ImportAccounts(records []domain.AccountRecord) (int, error) {
	for i := range records {
		if err := s.UpsertAccount(&records[i]); err != nil {
			return i, fmt.Errorf("import %s: %w", records[i].Address, err)
		}
	}
	return len(records), nil
}

// GetAccountRecord retrieves a captured account by address
func (s *Storage) GetAccountRecord(address string) (*domain.AccountRecord, error) {
	var rec domain.AccountRecord
	err := s.db.First(&rec, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAccount implements domain.AccountFetcher over the captured accounts
func (s *Storage) GetAccount(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	var rec domain.AccountRecord
	err := s.db.WithContext(ctx).First(&rec, "address = ?", address.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAccountNotFound
	}
	if errors.Is(err, context.Canceled) {
		return nil, domain.NewFatalFetchError("sqlite_get_account", err)
	}
	if err != nil {
		return nil, domain.NewFetchError("sqlite_get_account", err)
	}
	return rec.Data, nil
}

// GetAllAccounts retrieves every captured account ordered by address
func (s *Storage) GetAllAccounts() ([]domain.AccountRecord, error) {
	var recs []domain.AccountRecord
	err := s.db.Order("address").Find(&recs).Error
	return recs, err
}

// DeleteAccount removes a captured account
func (s *Storage) DeleteAccount(address string) error {
	return s.db.Where("address = ?", address).Delete(&domain.AccountRecord{}).Error
}

// ======================================================================================
// Quote Operations
// ======================================================================================

// RecordQuote appends a quote outcome to the history table
func (s *Storage) RecordQuote(market solana.PublicKey, req domain.QuoteRequest, res domain.QuoteResult) error {
	rec := domain.QuoteRecord{
		Market:         market.String(),
		InputMint:      req.InputMint.String(),
		OutputMint:     req.OutputMint.String(),
		Side:           res.Side.String(),
		InAmount:       res.InAmount,
		OutAmount:      res.OutAmount,
		FeeAmount:      res.FeeAmount,
		MinOutAmount:   res.MinOutAmount,
		PriceImpactPct: res.PriceImpactPct.String(),
	}
	return s.db.Create(&rec).Error
}

// RecentQuotes returns up to limit quotes for market, newest first
func (s *Storage) RecentQuotes(market solana.PublicKey, limit int) ([]domain.QuoteRecord, error) {
	var recs []domain.QuoteRecord
	err := s.db.Where("market = ?", market.String()).
		Order("created_at desc").Order("id desc").
		Limit(limit).
		Find(&recs).Error
	return recs, err
}
