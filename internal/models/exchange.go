package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange is the user's current swap intent
type Exchange struct {
	FromAccount       *Account        `json:"from_account"`
	FromParentAccount *Account        `json:"from_parent_account,omitempty"`
	FromCurrency      *Currency       `json:"from_currency"`
	FromAmount        decimal.Decimal `json:"from_amount"`
	ToAccount         *Account        `json:"to_account"`
	ToParentAccount   *Account        `json:"to_parent_account,omitempty"`
	ToCurrency        *Currency       `json:"to_currency"`
	UseAllAmount      bool            `json:"use_all_amount"`
}

// ExchangeRate is a quote valid only for the Exchange it was requested for.
// MagnitudeAwareRate already accounts for both currencies' magnitudes.
type ExchangeRate struct {
	Rate               decimal.Decimal `json:"rate"`
	MagnitudeAwareRate decimal.Decimal `json:"magnitude_aware_rate"`
	Provider           string          `json:"provider"`
	RateId             string          `json:"rate_id"`
	ExpiresAt          time.Time       `json:"expires_at,omitempty"`
}

// SwapOperation is an accepted exchange and its quote, handed to the execution pipeline
type SwapOperation struct {
	Exchange     Exchange     `json:"exchange"`
	ExchangeRate ExchangeRate `json:"exchange_rate"`
}

// ToAmount returns the destination amount in the destination's smallest unit
func ToAmount(fromAmount decimal.Decimal, rate ExchangeRate) decimal.Decimal {
	return fromAmount.Mul(rate.MagnitudeAwareRate)
}

// ToAmount returns the amount the operation is expected to credit
func (o SwapOperation) ToAmount() decimal.Decimal {
	return ToAmount(o.Exchange.FromAmount, o.ExchangeRate)
}

// Unit converts an amount in smallest unit to the display unit of the currency
func Unit(amount decimal.Decimal, currency *Currency) decimal.Decimal {
	if currency == nil {
		return amount
	}
	return amount.Shift(-currency.Magnitude)
}

// SmallestUnit converts a display amount to the currency's smallest unit
func SmallestUnit(amount decimal.Decimal, currency *Currency) decimal.Decimal {
	if currency == nil {
		return amount
	}
	return amount.Shift(currency.Magnitude)
}
