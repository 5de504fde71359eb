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

package main

import (
	"context"
	"flag"
	"fmt"

	"swap-exchange-go/internal/api"
	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/config"
	"swap-exchange-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalAccounts  int
	fundedAccounts int
	tokenAccounts  int
}

func printAccount(balance models.AccountBalance, isLast bool) {
	kind := "account"
	if balance.ParentId != "" {
		kind = "token of " + balance.ParentId
	}
	fmt.Printf("%s %-20s: %24s %-6s (%s, %s)\n",
		common.BoxPrefix(isLast),
		balance.Name,
		balance.Balance.String(),
		balance.Ticker,
		balance.AccountId,
		kind)
}

func generateReport(ctx context.Context, service *api.SwapService, accountFilter string) (balanceStats, error) {
	stats := balanceStats{}

	var balances []models.AccountBalance
	if accountFilter != "" {
		balance, err := service.GetAccountBalance(ctx, accountFilter)
		if err != nil {
			return stats, err
		}
		balances = []models.AccountBalance{*balance}
	} else {
		all, err := service.GetAccountBalances(ctx)
		if err != nil {
			return stats, err
		}
		balances = all
	}

	for i, balance := range balances {
		stats.totalAccounts++
		if balance.Balance.IsPositive() {
			stats.fundedAccounts++
		}
		if balance.ParentId != "" {
			stats.tokenAccounts++
		}
		printAccount(balance, i == len(balances)-1)
	}

	return stats, nil
}

func main() {
	ctx := context.Background()

	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	accountFlag := flag.String("account", "", "Filter by specific account id (optional)")
	flag.Parse()

	logger.Info("Starting balance query")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Read-only, the quoting service and signer are not needed
	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	service := api.NewSwapService(api.SwapServiceConfig{Db: dbService})

	common.PrintHeader("ACCOUNT BALANCE REPORT", common.WideWidth)

	stats, err := generateReport(ctx, service, *accountFlag)
	if err != nil {
		logger.Fatal("Failed to generate report", zap.Error(err))
	}

	common.PrintFooter(fmt.Sprintf("SUMMARY: %d funded accounts out of %d (%d token accounts)",
		stats.fundedAccounts, stats.totalAccounts, stats.tokenAccounts), common.WideWidth)

	logger.Info("Balance query completed",
		zap.Int("accounts", stats.totalAccounts),
		zap.Int("funded_accounts", stats.fundedAccounts))
}
