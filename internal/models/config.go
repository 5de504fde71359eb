package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Swap     SwapConfig
	Rates    RatesConfig
	Device   DeviceConfig
	Bridge   BridgeConfig
	Status   StatusConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string        `env:"DATABASE_PATH" envDefault:"swap.db"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"30s"`
	PingTimeout     time.Duration `env:"DB_PING_TIMEOUT" envDefault:"5s"`
}

// SwapConfig holds form settings
type SwapConfig struct {
	Debounce      time.Duration `env:"SWAP_DEBOUNCE" envDefault:"1s"`
	DirectoryFile string        `env:"SWAP_DIRECTORY_FILE" envDefault:"directory.yaml"`
}

// RatesConfig holds quoting service client settings
type RatesConfig struct {
	BaseURL           string        `env:"RATES_API_URL" envDefault:"http://localhost:8089/"`
	ApiKey            string        `env:"RATES_API_KEY"`
	RequestTimeout    time.Duration `env:"RATES_REQUEST_TIMEOUT" envDefault:"15s"`
	RequestsPerSecond float64       `env:"RATES_REQUESTS_PER_SECOND" envDefault:"5"`
	Burst             int           `env:"RATES_BURST" envDefault:"5"`
	BreakerErrors     int           `env:"RATES_BREAKER_ERRORS" envDefault:"3"`
	BreakerTimeout    time.Duration `env:"RATES_BREAKER_TIMEOUT" envDefault:"30s"`
	ProviderCacheTTL  time.Duration `env:"RATES_PROVIDER_CACHE_TTL" envDefault:"5m"`
}

// DeviceConfig holds device session settings
type DeviceConfig struct {
	Path           string        `env:"DEVICE_PATH" envDefault:"console"`
	ConfirmTimeout time.Duration `env:"DEVICE_CONFIRM_TIMEOUT" envDefault:"2m"`
}

// BridgeConfig holds signing and broadcast settings
type BridgeConfig struct {
	NodeURL    string `env:"BRIDGE_NODE_URL" envDefault:"http://localhost:8090/"`
	SignerSeed string `env:"BRIDGE_SIGNER_SEED"`
}

// StatusConfig holds swap status listener settings
type StatusConfig struct {
	PollingInterval time.Duration `env:"STATUS_POLLING_INTERVAL" envDefault:"5s"`
}
