package store

import (
	"context"

	"swap-exchange-go/internal/models"
)

// AccountDirectory is the read-only source of the account and currency universe.
// Callers treat each Snapshot as a point-in-time copy.
type AccountDirectory interface {
	Snapshot(ctx context.Context) (*models.Directory, error)
	GetAccountById(ctx context.Context, accountId string) (*models.Account, error)
	GetCurrencyById(ctx context.Context, currencyId string) (*models.Currency, error)
	Close()
}

// RateQuoteService quotes an exchange. On success at least one rate is returned,
// ordered best first.
type RateQuoteService interface {
	GetRates(ctx context.Context, exchange models.Exchange) ([]models.ExchangeRate, error)
}

// DeviceBridge authorizes a swap on the signing device. It returns once the user
// confirmed on the device.
type DeviceBridge interface {
	InitSwap(ctx context.Context, exchange models.Exchange, rate models.ExchangeRate, devicePath string) (*models.InitSwapResult, error)
}

// SignRequest contains the parameters for signing a transaction.
type SignRequest struct {
	Account     *models.Account
	DeviceId    string
	Transaction models.Transaction
}

// BroadcastRequest contains the parameters for submitting a signed operation.
type BroadcastRequest struct {
	Account         *models.Account
	SignedOperation models.SignedOperation
}

// AccountBridge signs and broadcasts transactions for a currency family.
//
// SignOperation returns a finite stream of events. The stream ends after a
// SignEventSigned event or an event carrying Err, and is closed by the
// producer. Producers must stop sending once ctx is done.
type AccountBridge interface {
	SignOperation(ctx context.Context, req SignRequest) (<-chan models.SignEvent, error)
	Broadcast(ctx context.Context, req BroadcastRequest) (*models.Operation, error)
}
