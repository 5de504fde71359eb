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
	"os"
	"os/signal"
	"syscall"
	"time"

	"swap-exchange-go/internal/common"
	"swap-exchange-go/internal/config"
	"swap-exchange-go/internal/listener"
	"swap-exchange-go/internal/models"

	"go.uber.org/zap"
)

func main() {
	providerFlag := flag.String("provider", "", "Provider of the swaps (optional)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: listener [-provider name] <swap-id>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	swaps := make([]models.TrackedSwap, 0, flag.NArg())
	for _, swapId := range flag.Args() {
		swaps = append(swaps, models.TrackedSwap{SwapId: swapId, Provider: *providerFlag})
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting swap status listener", zap.Int("swaps", len(swaps)))

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	l := listener.NewSwapStatusListener(listener.SwapStatusListenerConfig{
		Source:          services.RatesClient,
		PollingInterval: cfg.Status.PollingInterval,
		Swaps:           swaps,
		StopWhenIdle:    true,
		OnStatus: func(swap models.TrackedSwap, status models.SwapStatus) {
			fmt.Printf("[%s] swap %s (%s): %s\n",
				time.Now().Format("15:04:05"), swap.SwapId, status.Provider, common.StatusLabel(status.Status))
		},
	})

	if err := l.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start listener", zap.Error(err))
	}

	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-l.Done():
		zap.L().Info("All swaps settled")
		return
	case <-sigChan:
	}

	zap.L().Info("Shutdown signal received, stopping listener...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		l.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Listener stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
