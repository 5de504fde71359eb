package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UpsertAccount inserts or updates a single account. Its currency must exist.
func (s *Service) UpsertAccount(ctx context.Context, a *models.Account) error {
	return upsertAccount(ctx, s.db, a)
}

func upsertAccount(ctx context.Context, q querier, a *models.Account) error {
	if a == nil || a.Id == "" {
		return fmt.Errorf("account id cannot be empty")
	}
	if a.Currency == nil {
		return fmt.Errorf("account %s has no currency", a.Id)
	}

	var parentId sql.NullString
	if a.ParentId != "" {
		parentId = sql.NullString{String: a.ParentId, Valid: true}
	}

	_, err := q.ExecContext(ctx, queryUpsertAccount,
		a.Id, string(a.Kind), a.Name, a.Currency.Id, a.Balance.String(),
		parentId, a.FreshAddress, a.DerivationPath)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", a.Id, err)
	}

	zap.L().Debug("Account upserted",
		zap.String("account_id", a.Id),
		zap.String("currency_id", a.Currency.Id),
		zap.String("balance", a.Balance.String()))
	return nil
}

// GetAccountById returns an account with its currency resolved
func (s *Service) GetAccountById(ctx context.Context, accountId string) (*models.Account, error) {
	var record models.AccountRecord
	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetAccountById, accountId).Scan(
		&record.Id, &record.Kind, &record.Name, &record.CurrencyId, &balanceStr,
		&record.ParentId, &record.FreshAddress, &record.DerivationPath, &record.Version, &record.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", store.ErrAccountNotFound, accountId)
	}
	if err != nil {
		zap.L().Error("Failed to get account", zap.String("account_id", accountId), zap.Error(err))
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	record.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}

	currency, err := s.GetCurrencyById(ctx, record.CurrencyId)
	if err != nil {
		return nil, err
	}

	return accountFromRecord(record, currency), nil
}

// ListAccounts returns every account whose currency is known
func (s *Service) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	currencies, err := s.loadCurrencies(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return s.loadAccounts(ctx, s.db, currencies)
}

func (s *Service) loadAccounts(ctx context.Context, q querier, currencies *currencySet) ([]*models.Account, error) {
	rows, err := q.QueryContext(ctx, queryGetAccounts)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.Error(err))
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer closeRows(rows)

	var accounts []*models.Account
	for rows.Next() {
		var record models.AccountRecord
		var balanceStr string
		if err := rows.Scan(&record.Id, &record.Kind, &record.Name, &record.CurrencyId, &balanceStr,
			&record.ParentId, &record.FreshAddress, &record.DerivationPath, &record.Version, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}

		record.Balance, err = decimal.NewFromString(balanceStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
		}

		currency, ok := currencies.byId[record.CurrencyId]
		if !ok {
			zap.L().Warn("Skipping account with unknown currency",
				zap.String("account_id", record.Id),
				zap.String("currency_id", record.CurrencyId))
			continue
		}

		accounts = append(accounts, accountFromRecord(record, currency))
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	return accounts, nil
}

func accountFromRecord(record models.AccountRecord, currency *models.Currency) *models.Account {
	return &models.Account{
		Kind:           models.AccountKind(record.Kind),
		Id:             record.Id,
		Name:           record.Name,
		Currency:       currency,
		Balance:        record.Balance,
		ParentId:       record.ParentId,
		FreshAddress:   record.FreshAddress,
		DerivationPath: record.DerivationPath,
	}
}
