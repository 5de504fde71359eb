package common

import (
	"context"
	"log"
	"os"
	"strings"

	"swap-exchange-go/internal/api"
	"swap-exchange-go/internal/bridge"
	"swap-exchange-go/internal/database"
	"swap-exchange-go/internal/device"
	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/rates"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// A missing .env is fine, the environment can be set by other means
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService   *database.Service
	RatesClient *rates.Client
	Device      *device.Console
	Bridge      *bridge.SoftwareBridge
	SwapService *api.SwapService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	httpClient, err := NewHttpClient(cfg.Rates.RequestTimeout)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	zap.L().Info("Connecting to quoting service", zap.String("url", cfg.Rates.BaseURL))
	ratesClient, err := rates.NewClient(cfg.Rates, httpClient)
	if err != nil {
		dbService.Close()
		return nil, err
	}

	softwareBridge, err := bridge.NewSoftwareBridge(cfg.Bridge, httpClient)
	if err != nil {
		ratesClient.Close()
		dbService.Close()
		return nil, err
	}
	zap.L().Info("Using software signer", zap.String("public_key", softwareBridge.PublicKey()))

	console := device.NewConsole(ratesClient, os.Stdin, os.Stdout, cfg.Device.ConfirmTimeout)

	swapService := api.NewSwapService(api.SwapServiceConfig{
		Db:             dbService,
		Rates:          ratesClient,
		Device:         console,
		Bridge:         softwareBridge,
		Debounce:       cfg.Swap.Debounce,
		RequestTimeout: cfg.Rates.RequestTimeout,
		DevicePath:     cfg.Device.Path,
		DeviceId:       cfg.Device.Path,
	})

	return &Services{
		DbService:   dbService,
		RatesClient: ratesClient,
		Device:      console,
		Bridge:      softwareBridge,
		SwapService: swapService,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.RatesClient != nil {
		cs.RatesClient.Close()
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
