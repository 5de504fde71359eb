package main

import (
	"context"
	"flag"

	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "", "Path to the directory seed file (default: SWAP_DIRECTORY_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	directoryFile := cfg.Swap.DirectoryFile
	if *fileFlag != "" {
		directoryFile = *fileFlag
	}

	zap.L().Info("Loading account directory", zap.String("file", directoryFile))
	directory, err := common.LoadDirectory(directoryFile)
	if err != nil {
		zap.L().Fatal("Failed to load account directory", zap.Error(err))
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if err := dbService.Seed(ctx, directory); err != nil {
		zap.L().Fatal("Failed to seed database", zap.Error(err))
	}

	zap.L().Info("Initialization complete",
		zap.Int("currencies", len(directory.Currencies)),
		zap.Int("accounts", len(directory.Accounts)),
		zap.Int("providers", len(directory.Providers)),
		zap.Int("installed_apps", len(directory.InstalledApps)))
}
