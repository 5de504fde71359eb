package database

import (
	"context"
	"database/sql"
	"fmt"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"go.uber.org/zap"
)

// currencySet keeps the load order and an index by id
type currencySet struct {
	ordered []*models.Currency
	byId    map[string]*models.Currency
}

// UpsertCurrency inserts or updates a single currency
func (s *Service) UpsertCurrency(ctx context.Context, c *models.Currency) error {
	return upsertCurrency(ctx, s.db, c)
}

func upsertCurrency(ctx context.Context, q querier, c *models.Currency) error {
	if c == nil || c.Id == "" {
		return fmt.Errorf("currency id cannot be empty")
	}

	var parentId sql.NullString
	if c.Parent != nil {
		parentId = sql.NullString{String: c.Parent.Id, Valid: true}
	}

	_, err := q.ExecContext(ctx, queryUpsertCurrency,
		c.Id, string(c.Kind), c.Ticker, c.Name, c.Magnitude, c.ManagerAppName, parentId)
	if err != nil {
		return fmt.Errorf("failed to upsert currency %s: %w", c.Id, err)
	}

	zap.L().Debug("Currency upserted", zap.String("currency_id", c.Id), zap.String("kind", string(c.Kind)))
	return nil
}

// GetCurrencyById returns a currency with its parent resolved
func (s *Service) GetCurrencyById(ctx context.Context, currencyId string) (*models.Currency, error) {
	currencies, err := s.loadCurrencies(ctx, s.db)
	if err != nil {
		return nil, err
	}

	currency, ok := currencies.byId[currencyId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrCurrencyNotFound, currencyId)
	}
	return currency, nil
}

// ListCurrencies returns every stored currency in insertion order
func (s *Service) ListCurrencies(ctx context.Context) ([]*models.Currency, error) {
	currencies, err := s.loadCurrencies(ctx, s.db)
	if err != nil {
		return nil, err
	}
	return currencies.ordered, nil
}

// loadCurrencies reads all currency rows and links tokens to their parent.
// Tokens whose parent is unknown are skipped.
func (s *Service) loadCurrencies(ctx context.Context, q querier) (*currencySet, error) {
	rows, err := q.QueryContext(ctx, queryGetCurrencies)
	if err != nil {
		zap.L().Error("Failed to query currencies", zap.Error(err))
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer closeRows(rows)

	var records []models.CurrencyRecord
	for rows.Next() {
		var record models.CurrencyRecord
		if err := rows.Scan(&record.Id, &record.Kind, &record.Ticker, &record.Name,
			&record.Magnitude, &record.ManagerAppName, &record.ParentId, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating currency rows: %w", err)
	}

	set := &currencySet{byId: make(map[string]*models.Currency, len(records))}
	for _, record := range records {
		set.byId[record.Id] = &models.Currency{
			Kind:           models.CurrencyKind(record.Kind),
			Id:             record.Id,
			Ticker:         record.Ticker,
			Name:           record.Name,
			Magnitude:      record.Magnitude,
			ManagerAppName: record.ManagerAppName,
		}
	}

	for _, record := range records {
		currency := set.byId[record.Id]
		if currency.Kind == models.CurrencyKindToken {
			parent, ok := set.byId[record.ParentId]
			if !ok || parent.IsToken() {
				zap.L().Warn("Skipping token with unknown parent currency",
					zap.String("currency_id", record.Id),
					zap.String("parent_id", record.ParentId))
				delete(set.byId, record.Id)
				continue
			}
			currency.Parent = parent
		}
		set.ordered = append(set.ordered, currency)
	}

	return set, nil
}
