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

package api

import (
	"context"
	"errors"
	"fmt"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"go.uber.org/zap"
)

// GetAccountBalance returns the balance of one account in display units
func (s *SwapService) GetAccountBalance(ctx context.Context, accountId string) (*models.AccountBalance, error) {
	if accountId == "" {
		return nil, fmt.Errorf("account_id is required")
	}

	account, err := s.db.GetAccountById(ctx, accountId)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, err
		}
		zap.L().Error("Failed to get account", zap.String("account_id", accountId), zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balance")
	}

	balance := accountBalance(account)
	return &balance, nil
}

// GetAccountBalances returns every account's balance, token accounts included
func (s *SwapService) GetAccountBalances(ctx context.Context) ([]models.AccountBalance, error) {
	directory, err := s.db.Snapshot(ctx)
	if err != nil {
		zap.L().Error("Failed to load accounts", zap.Error(err))
		return nil, fmt.Errorf("failed to retrieve balances")
	}

	result := make([]models.AccountBalance, len(directory.Accounts))
	for i, account := range directory.Accounts {
		result[i] = accountBalance(account)
	}
	return result, nil
}

func accountBalance(account *models.Account) models.AccountBalance {
	return models.AccountBalance{
		AccountId: account.Id,
		Name:      account.Name,
		Currency:  account.Currency.Id,
		Ticker:    account.Currency.Ticker,
		Balance:   models.Unit(account.Balance, account.Currency),
		ParentId:  account.ParentId,
	}
}
