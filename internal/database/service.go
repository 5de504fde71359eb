/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"fmt"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.AccountDirectory.
var _ store.AccountDirectory = (*Service)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after ping failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			zap.L().Warn("Failed to close database after schema failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

// Ping checks that the database is reachable
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS currencies (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		ticker TEXT NOT NULL,
		name TEXT NOT NULL,
		magnitude INTEGER NOT NULL,
		manager_app_name TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		currency_id TEXT NOT NULL REFERENCES currencies(id),
		balance TEXT NOT NULL DEFAULT '0',
		parent_id TEXT,
		fresh_address TEXT NOT NULL DEFAULT '',
		derivation_path TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_currency_id ON accounts(currency_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_parent_id ON accounts(parent_id);

	CREATE TABLE IF NOT EXISTS providers (
		name TEXT PRIMARY KEY,
		position INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS provider_currencies (
		provider_name TEXT NOT NULL REFERENCES providers(name) ON DELETE CASCADE,
		currency_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (provider_name, currency_id)
	);

	CREATE TABLE IF NOT EXISTS installed_apps (
		name TEXT PRIMARY KEY,
		updated BOOLEAN NOT NULL DEFAULT 1
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Snapshot reads the whole directory inside one transaction
func (s *Service) Snapshot(ctx context.Context) (*models.Directory, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot: %w", err)
	}
	defer tx.Rollback()

	currencies, err := s.loadCurrencies(ctx, tx)
	if err != nil {
		return nil, err
	}

	accounts, err := s.loadAccounts(ctx, tx, currencies)
	if err != nil {
		return nil, err
	}

	providers, err := s.loadProviders(ctx, tx)
	if err != nil {
		return nil, err
	}

	apps, err := s.loadInstalledApps(ctx, tx)
	if err != nil {
		return nil, err
	}

	directory := &models.Directory{
		Currencies:    currencies.ordered,
		Accounts:      accounts,
		Providers:     providers,
		InstalledApps: apps,
	}

	zap.L().Debug("Directory snapshot loaded",
		zap.Int("currencies", len(directory.Currencies)),
		zap.Int("accounts", len(directory.Accounts)),
		zap.Int("providers", len(directory.Providers)),
		zap.Int("installed_apps", len(directory.InstalledApps)))

	return directory, nil
}

// Seed writes a whole directory in one transaction. Providers and installed
// apps are replaced, currencies and accounts are upserted.
func (s *Service) Seed(ctx context.Context, directory *models.Directory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed: %w", err)
	}
	defer tx.Rollback()

	for _, c := range directory.Currencies {
		if err := upsertCurrency(ctx, tx, c); err != nil {
			return err
		}
	}
	for _, a := range directory.Accounts {
		if err := upsertAccount(ctx, tx, a); err != nil {
			return err
		}
	}
	if err := replaceProviders(ctx, tx, directory.Providers); err != nil {
		return err
	}
	if err := replaceInstalledApps(ctx, tx, directory.InstalledApps); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	zap.L().Info("Directory seeded",
		zap.Int("currencies", len(directory.Currencies)),
		zap.Int("accounts", len(directory.Accounts)),
		zap.Int("providers", len(directory.Providers)),
		zap.Int("installed_apps", len(directory.InstalledApps)))
	return nil
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
