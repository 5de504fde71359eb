package database

import (
	"context"
	"fmt"

	"swap-exchange-go/internal/models"

	"go.uber.org/zap"
)

// SetProviders replaces the stored providers and their supported currencies
func (s *Service) SetProviders(ctx context.Context, providers []models.Provider) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceProviders(ctx, tx, providers); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceProviders(ctx context.Context, q querier, providers []models.Provider) error {
	if _, err := q.ExecContext(ctx, queryDeleteProviderCurrencies); err != nil {
		return fmt.Errorf("failed to clear provider currencies: %w", err)
	}
	if _, err := q.ExecContext(ctx, queryDeleteProviders); err != nil {
		return fmt.Errorf("failed to clear providers: %w", err)
	}

	for i, provider := range providers {
		if _, err := q.ExecContext(ctx, queryInsertProvider, provider.Name, i); err != nil {
			return fmt.Errorf("failed to insert provider %s: %w", provider.Name, err)
		}
		for j, currencyId := range provider.SupportedCurrencies {
			if _, err := q.ExecContext(ctx, queryInsertProviderCurrency, provider.Name, currencyId, j); err != nil {
				return fmt.Errorf("failed to insert currency %s for provider %s: %w", currencyId, provider.Name, err)
			}
		}
	}

	zap.L().Debug("Providers replaced", zap.Int("count", len(providers)))
	return nil
}

func (s *Service) loadProviders(ctx context.Context, q querier) ([]models.Provider, error) {
	rows, err := q.QueryContext(ctx, queryGetProviderCurrencies)
	if err != nil {
		return nil, fmt.Errorf("failed to query providers: %w", err)
	}
	defer closeRows(rows)

	var providers []models.Provider
	for rows.Next() {
		var name, currencyId string
		if err := rows.Scan(&name, &currencyId); err != nil {
			return nil, fmt.Errorf("failed to scan provider: %w", err)
		}

		if len(providers) == 0 || providers[len(providers)-1].Name != name {
			providers = append(providers, models.Provider{Name: name})
		}
		if currencyId != "" {
			last := &providers[len(providers)-1]
			last.SupportedCurrencies = append(last.SupportedCurrencies, currencyId)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating provider rows: %w", err)
	}

	return providers, nil
}

// SetInstalledApps replaces the list of apps present on the device
func (s *Service) SetInstalledApps(ctx context.Context, apps []models.InstalledApp) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := replaceInstalledApps(ctx, tx, apps); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceInstalledApps(ctx context.Context, q querier, apps []models.InstalledApp) error {
	if _, err := q.ExecContext(ctx, queryDeleteInstalledApps); err != nil {
		return fmt.Errorf("failed to clear installed apps: %w", err)
	}
	for _, app := range apps {
		if _, err := q.ExecContext(ctx, queryInsertInstalledApp, app.Name, app.Updated); err != nil {
			return fmt.Errorf("failed to insert installed app %s: %w", app.Name, err)
		}
	}
	return nil
}

func (s *Service) loadInstalledApps(ctx context.Context, q querier) ([]models.InstalledApp, error) {
	rows, err := q.QueryContext(ctx, queryGetInstalledApps)
	if err != nil {
		return nil, fmt.Errorf("failed to query installed apps: %w", err)
	}
	defer closeRows(rows)

	var apps []models.InstalledApp
	for rows.Next() {
		var app models.InstalledApp
		if err := rows.Scan(&app.Name, &app.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan installed app: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating installed app rows: %w", err)
	}

	return apps, nil
}
