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

package config

import (
	"fmt"
	"net/url"

	"swap-exchange-go/internal/models"

	"github.com/caarlos0/env/v10"
)

func Load() (*models.Config, error) {
	cfg := &models.Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse environment: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *models.Config) error {
	if cfg.Swap.Debounce <= 0 {
		return fmt.Errorf("invalid duration for SWAP_DEBOUNCE: %v must be positive", cfg.Swap.Debounce)
	}
	if cfg.Rates.RequestTimeout <= 0 {
		return fmt.Errorf("invalid duration for RATES_REQUEST_TIMEOUT: %v must be positive", cfg.Rates.RequestTimeout)
	}
	if cfg.Rates.RequestsPerSecond <= 0 {
		return fmt.Errorf("RATES_REQUESTS_PER_SECOND must be positive, got %v", cfg.Rates.RequestsPerSecond)
	}
	if cfg.Rates.Burst <= 0 {
		return fmt.Errorf("RATES_BURST must be positive, got %d", cfg.Rates.Burst)
	}
	if cfg.Rates.BreakerErrors <= 0 {
		return fmt.Errorf("RATES_BREAKER_ERRORS must be positive, got %d", cfg.Rates.BreakerErrors)
	}
	if cfg.Device.ConfirmTimeout <= 0 {
		return fmt.Errorf("invalid duration for DEVICE_CONFIRM_TIMEOUT: %v must be positive", cfg.Device.ConfirmTimeout)
	}
	if cfg.Status.PollingInterval <= 0 {
		return fmt.Errorf("invalid duration for STATUS_POLLING_INTERVAL: %v must be positive", cfg.Status.PollingInterval)
	}

	for key, raw := range map[string]string{
		"RATES_API_URL":   cfg.Rates.BaseURL,
		"BRIDGE_NODE_URL": cfg.Bridge.NodeURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid url for %s: %q (%w)", key, raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid url for %s: %q", key, raw)
		}
	}

	return nil
}
