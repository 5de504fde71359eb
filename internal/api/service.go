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
	"fmt"
	"time"

	"swap-exchange-go/internal/database"
	"swap-exchange-go/internal/store"

	"github.com/andres-erbsen/clock"
)

// SwapServiceConfig contains configuration for SwapService
type SwapServiceConfig struct {
	Db             *database.Service
	Rates          store.RateQuoteService
	Device         store.DeviceBridge
	Bridge         store.AccountBridge
	Clock          clock.Clock
	Debounce       time.Duration
	RequestTimeout time.Duration
	DevicePath     string
	DeviceId       string
}

// SwapService ties the account directory, the swap form and the execution
// pipeline together
type SwapService struct {
	db             *database.Service
	rates          store.RateQuoteService
	device         store.DeviceBridge
	bridge         store.AccountBridge
	clock          clock.Clock
	debounce       time.Duration
	requestTimeout time.Duration
	devicePath     string
	deviceId       string
}

func NewSwapService(cfg SwapServiceConfig) *SwapService {
	return &SwapService{
		db:             cfg.Db,
		rates:          cfg.Rates,
		device:         cfg.Device,
		bridge:         cfg.Bridge,
		clock:          cfg.Clock,
		debounce:       cfg.Debounce,
		requestTimeout: cfg.RequestTimeout,
		devicePath:     cfg.DevicePath,
		deviceId:       cfg.DeviceId,
	}
}

func (s *SwapService) HealthCheck(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
