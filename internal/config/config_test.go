package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Swap.Debounce != time.Second {
		t.Errorf("Debounce = %v, want 1s", cfg.Swap.Debounce)
	}
	if cfg.Database.Path != "swap.db" || cfg.Database.MaxOpenConns != 25 {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if cfg.Rates.BreakerErrors != 3 || cfg.Rates.ProviderCacheTTL != 5*time.Minute {
		t.Errorf("Unexpected rates config %+v", cfg.Rates)
	}
	if cfg.Device.Path != "console" || cfg.Device.ConfirmTimeout != 2*time.Minute {
		t.Errorf("Unexpected device config %+v", cfg.Device)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SWAP_DEBOUNCE", "250ms")
	t.Setenv("RATES_API_URL", "https://rates.example.com/v1")
	t.Setenv("RATES_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("STATUS_POLLING_INTERVAL", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Swap.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v", cfg.Swap.Debounce)
	}
	if cfg.Rates.BaseURL != "https://rates.example.com/v1" || cfg.Rates.RequestsPerSecond != 2.5 {
		t.Errorf("Unexpected rates config %+v", cfg.Rates)
	}
	if cfg.Status.PollingInterval != 30*time.Second {
		t.Errorf("PollingInterval = %v", cfg.Status.PollingInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"zero debounce", "SWAP_DEBOUNCE", "0s", "SWAP_DEBOUNCE"},
		{"unparsable duration", "DEVICE_CONFIRM_TIMEOUT", "soon", "unable to parse environment"},
		{"negative rate", "RATES_REQUESTS_PER_SECOND", "-1", "RATES_REQUESTS_PER_SECOND"},
		{"zero burst", "RATES_BURST", "0", "RATES_BURST"},
		{"zero breaker errors", "RATES_BREAKER_ERRORS", "0", "RATES_BREAKER_ERRORS"},
		{"url without host", "BRIDGE_NODE_URL", "localhost", "BRIDGE_NODE_URL"},
		{"zero polling interval", "STATUS_POLLING_INTERVAL", "0s", "STATUS_POLLING_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}
