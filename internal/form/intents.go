package form

import (
	"swap-exchange-go/internal/models"

	"github.com/shopspring/decimal"
)

// Intent is a user or coordinator event applied by Transition. The set is closed.
type Intent interface {
	intent()
}

type SetFromCurrency struct{ Currency *models.Currency }

type SetFromAccount struct{ Account *models.Account }

type SetFromAmount struct{ Amount decimal.Decimal }

type ToggleUseAllAmount struct{}

type SetToCurrency struct{ Currency *models.Currency }

type SetToAccount struct{ Account *models.Account }

// FetchRates is issued by the coordinator when a request goes out
type FetchRates struct{}

// SetRate is issued by the coordinator with the first quote
type SetRate struct{ Rate models.ExchangeRate }

// SetError is issued by the coordinator when the quote request failed
type SetError struct{ Err error }

func (SetFromCurrency) intent()    {}
func (SetFromAccount) intent()     {}
func (SetFromAmount) intent()      {}
func (ToggleUseAllAmount) intent() {}
func (SetToCurrency) intent()      {}
func (SetToAccount) intent()       {}
func (FetchRates) intent()         {}
func (SetRate) intent()            {}
func (SetError) intent()           {}

// IsParameterChange reports whether the intent edits the exchange
func IsParameterChange(intent Intent) bool {
	switch intent.(type) {
	case SetFromCurrency, SetFromAccount, SetFromAmount, ToggleUseAllAmount, SetToCurrency, SetToAccount:
		return true
	}
	return false
}
