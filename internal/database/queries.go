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

const (
	// Currency queries
	queryUpsertCurrency = `
		INSERT INTO currencies (id, kind, ticker, name, magnitude, manager_app_name, parent_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			ticker = excluded.ticker,
			name = excluded.name,
			magnitude = excluded.magnitude,
			manager_app_name = excluded.manager_app_name,
			parent_id = excluded.parent_id`

	queryGetCurrencies = `
		SELECT id, kind, ticker, name, magnitude, manager_app_name, COALESCE(parent_id, ''), created_at
		FROM currencies
		ORDER BY rowid`

	// Account queries
	queryUpsertAccount = `
		INSERT INTO accounts (id, kind, name, currency_id, balance, parent_id, fresh_address, derivation_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			currency_id = excluded.currency_id,
			balance = excluded.balance,
			parent_id = excluded.parent_id,
			fresh_address = excluded.fresh_address,
			derivation_path = excluded.derivation_path,
			version = accounts.version + 1,
			updated_at = CURRENT_TIMESTAMP`

	queryGetAccounts = `
		SELECT id, kind, name, currency_id, balance, COALESCE(parent_id, ''), fresh_address, derivation_path, version, updated_at
		FROM accounts
		ORDER BY rowid`

	queryGetAccountById = `
		SELECT id, kind, name, currency_id, balance, COALESCE(parent_id, ''), fresh_address, derivation_path, version, updated_at
		FROM accounts
		WHERE id = ?`

	// Provider queries
	queryDeleteProviders = `DELETE FROM providers`

	queryDeleteProviderCurrencies = `DELETE FROM provider_currencies`

	queryInsertProvider = `
		INSERT INTO providers (name, position) VALUES (?, ?)`

	queryInsertProviderCurrency = `
		INSERT OR IGNORE INTO provider_currencies (provider_name, currency_id, position) VALUES (?, ?, ?)`

	queryGetProviderCurrencies = `
		SELECT p.name, COALESCE(pc.currency_id, '')
		FROM providers p
		LEFT JOIN provider_currencies pc ON pc.provider_name = p.name
		ORDER BY p.position, pc.position`

	// Installed app queries
	queryDeleteInstalledApps = `DELETE FROM installed_apps`

	queryInsertInstalledApp = `
		INSERT INTO installed_apps (name, updated) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET updated = excluded.updated`

	queryGetInstalledApps = `
		SELECT name, updated
		FROM installed_apps
		ORDER BY name`
)
